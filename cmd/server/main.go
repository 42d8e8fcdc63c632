package main

import (
	"context"
	"encoding/hex"
	"log"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"filemind/backend/internal/auth"
	"filemind/backend/internal/config"
	"filemind/backend/internal/database"
	"filemind/backend/internal/fieldcodec"
	"filemind/backend/internal/handlers"
	"filemind/backend/internal/middleware"
	"filemind/backend/internal/router"
	"filemind/backend/internal/services"
	"filemind/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	key, err := hex.DecodeString(cfg.FieldKey)
	if err != nil {
		logger.Fatalw("FIELD_ENCRYPTION_KEY is not valid hex", "error", err)
	}
	codec, err := fieldcodec.New(key)
	if err != nil {
		logger.Fatalw("failed to build field codec", "error", err)
	}

	ctx := context.Background()

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatalw("failed to connect to MongoDB", "error", err)
	}
	defer client.Disconnect(ctx)
	db := client.Database(cfg.DBName)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Fatalw("failed to ensure indexes", "error", err)
	}
	logger.Infow("connected to MongoDB", "database", cfg.DBName)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatalw("failed to connect to redis", "error", err)
		}
	}

	credentials := []byte(cfg.GCSCredentialsJSON)

	blobs, err := services.NewStorageService(ctx, credentials, cfg.GCSBucket, logger)
	if err != nil {
		logger.Fatalw("failed to initialize object storage", "error", err)
	}
	defer blobs.Close()

	ocr, err := services.NewOCRService(ctx, credentials)
	if err != nil {
		logger.Fatalw("failed to initialize OCR", "error", err)
	}

	ai, err := services.NewAIService(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Fatalw("failed to initialize Gemini client", "error", err)
	}

	mailer := services.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	payments := services.NewPaymentService(cfg.RazorpayKeyID, cfg.RazorpaySecret)
	tokens := auth.NewTokenManager(cfg.JWTSecret)

	users := store.NewUserStore(db.Collection(database.UsersCollection))
	fileIndex := store.NewFileIndexStore(db.Collection(database.FileIndexCollection))
	otps := store.NewOTPStore(db.Collection(database.OTPCollection))

	answering := services.NewAnsweringService(ai, fileIndex, ai, codec, logger)

	var otpLimiter *middleware.RateLimiter
	if redisClient != nil {
		otpLimiter = middleware.NewRateLimiter(redisClient, "otp-send", cfg.OTPSendLimit, cfg.OTPSendWindow)
	}

	engine := router.New(router.Deps{
		Auth:       handlers.NewAuthHandler(users, fileIndex, blobs, codec, tokens, logger),
		OTP:        handlers.NewOTPHandler(otps, mailer, codec, logger),
		Files:      handlers.NewFileHandler(users, fileIndex, blobs, ocr, ai, codec, logger),
		Chat:       handlers.NewChatHandler(answering, logger),
		Billing:    handlers.NewBillingHandler(users, payments, codec, logger),
		OTPLimiter: otpLimiter,
		Log:        logger,
	})

	logger.Infow("server starting", "port", cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		logger.Fatalw("server exited", "error", err)
	}
}
