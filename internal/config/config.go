package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var AppEnv Config

type Config struct {
	Port      string
	MongoURI  string
	DBName    string
	JWTSecret string
	TokenTTL  time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	ShippingFee         float64

	AWSRegion       string
	S3Bucket        string
	S3PublicBaseURL string
	SESFromEmail    string
	AdminEmail      string

	TrialCity          string
	CookieSecure       bool
	LogLevel           string
	RateLimitPerMinute int
}

// Load reads .env (when present) and the process environment into AppEnv.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug(".env not loaded", zap.String("component", "config"), zap.Error(err))
	}
	AppEnv = FromEnv()
	return AppEnv
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() Config {
	return Config{
		Port:      getEnvOrDefault("PORT", "8080"),
		MongoURI:  getEnvOrDefault("MONGO_URI", ""),
		DBName:    getEnvOrDefault("DB_NAME", "oiko"),
		JWTSecret: getEnvOrDefault("JWT_SECRET", ""),
		TokenTTL:  getDurationEnv("TOKEN_TTL_DAYS", 7, 24*time.Hour),

		StripeSecretKey:     getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),
		Currency:            strings.ToLower(getEnvOrDefault("CURRENCY", "inr")),
		ShippingFee:         getFloatEnv("SHIPPING_FEE", 99),

		AWSRegion:       getEnvOrDefault("AWS_REGION", "ap-south-1"),
		S3Bucket:        getEnvOrDefault("S3_BUCKET", ""),
		S3PublicBaseURL: strings.TrimRight(getEnvOrDefault("S3_PUBLIC_BASE_URL", ""), "/"),
		SESFromEmail:    getEnvOrDefault("SES_FROM_EMAIL", ""),
		AdminEmail:      getEnvOrDefault("ADMIN_EMAIL", ""),

		TrialCity:          getEnvOrDefault("TRIAL_CITY", "Bengaluru"),
		CookieSecure:       getBoolEnv("COOKIE_SECURE", false),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 120),
	}
}

// Validate reports the settings the server cannot start without.
func (c Config) Validate() error {
	var missing []string
	if c.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("missing required environment: " + strings.Join(missing, ", "))
	}
	return nil
}
