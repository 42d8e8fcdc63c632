// Package config loads runtime configuration from the environment. A local
// .env file is honored for development; real deployments set the variables
// directly.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"PORT"`

	MongoURI string `mapstructure:"MONGO_URI"`
	DBName   string `mapstructure:"DB_NAME"`

	// FieldKey is the hex-encoded 32-byte symmetric key for the field codec.
	FieldKey  string `mapstructure:"FIELD_ENCRYPTION_KEY"`
	JWTSecret string `mapstructure:"JWT_SECRET"`

	GCSBucket          string `mapstructure:"GCS_BUCKET"`
	GCSCredentialsJSON string `mapstructure:"GCS_CREDENTIALS_JSON"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort string `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	RazorpayKeyID  string `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpaySecret string `mapstructure:"RAZORPAY_KEY_SECRET"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	OTPSendLimit  int           `mapstructure:"OTP_SEND_LIMIT"`
	OTPSendWindow time.Duration `mapstructure:"-"`
}

// Load reads .env (if present) and the process environment into a Config.
func Load() (*Config, error) {
	// Missing .env is fine; containers set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	for _, key := range []string{
		"PORT", "MONGO_URI", "DB_NAME", "FIELD_ENCRYPTION_KEY", "JWT_SECRET",
		"GCS_BUCKET", "GCS_CREDENTIALS_JSON", "GEMINI_API_KEY",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "SMTP_FROM",
		"RAZORPAY_KEY_ID", "RAZORPAY_KEY_SECRET",
		"REDIS_ADDR", "REDIS_PASSWORD", "OTP_SEND_LIMIT",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBName == "" {
		cfg.DBName = "filemind"
	}
	if cfg.OTPSendLimit == 0 {
		cfg.OTPSendLimit = 5
	}
	cfg.OTPSendWindow = 10 * time.Minute

	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	required := map[string]string{
		"MONGO_URI":            c.MongoURI,
		"FIELD_ENCRYPTION_KEY": c.FieldKey,
		"JWT_SECRET":           c.JWTSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("config: %s is not set", name)
		}
	}
	return nil
}
