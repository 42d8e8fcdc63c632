package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"filemind/backend/internal/handlers"
	"filemind/backend/internal/middleware"
)

// Deps is everything the route table needs.
type Deps struct {
	Auth       *handlers.AuthHandler
	OTP        *handlers.OTPHandler
	Files      *handlers.FileHandler
	Chat       *handlers.ChatHandler
	Billing    *handlers.BillingHandler
	OTPLimiter *middleware.RateLimiter
	Log        *zap.SugaredLogger
}

// New builds the engine with all routes at the root path.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", handlers.HealthCheck)

	// Identity
	r.POST("/signup", d.Auth.Signup)
	r.POST("/login", d.Auth.Login)
	r.POST("/reset-password", d.Auth.ResetPassword)
	r.POST("/check-user-exists", d.Auth.CheckUserExists)
	r.POST("/check-username", d.Auth.CheckUsername)
	r.POST("/check-valid-user", d.Auth.CheckValidUser)
	r.POST("/update-notification-token", d.Auth.UpdatePushToken)
	r.DELETE("/deactivate", d.Auth.Deactivate)

	// OTP
	sendOTP := []gin.HandlerFunc{d.OTP.SendOTP}
	if d.OTPLimiter != nil {
		limiter := d.OTPLimiter.ByKey(func(c *gin.Context) string { return c.ClientIP() })
		sendOTP = append([]gin.HandlerFunc{limiter}, sendOTP...)
	}
	r.POST("/send-otp", sendOTP...)
	r.POST("/verify-otp", d.OTP.VerifyOTP)

	// File archive
	r.POST("/upload", d.Files.Upload)
	r.POST("/generate-upload-url", d.Files.GenerateUploadURL)
	r.GET("/files", d.Files.ListFiles)
	r.DELETE("/files/:fileId", d.Files.DeleteFile)

	// Answering + entitlements
	r.POST("/ask", d.Chat.Ask)
	r.POST("/check-prompt-limitation", d.Billing.CheckPromptLimitation)
	r.POST("/create-order", d.Billing.CreateOrder)
	r.POST("/verify-payment", d.Billing.VerifyPayment)

	return r
}
