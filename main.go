package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"oiko/internal/analytics"
	"oiko/internal/auth"
	"oiko/internal/checkout"
	"oiko/internal/config"
	"oiko/internal/database"
	"oiko/internal/handlers"
	"oiko/internal/images"
	"oiko/internal/logger"
	"oiko/internal/mailer"
	"oiko/internal/metrics"
	"oiko/internal/middleware"
	"oiko/internal/orders"
	"oiko/internal/payments"
	"oiko/internal/rewards"
	"oiko/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "oiko",
	Short:         "Oiko storefront API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func main() {
	rootCmd.AddCommand(serveCmd, indexesCmd, seedCmd)
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, installs the logger and connects to Mongo.
func bootstrap(ctx context.Context) (config.Config, *mongo.Client, *mongo.Database, error) {
	cfg := config.Load()
	if _, err := logger.Setup(cfg.LogLevel); err != nil {
		return cfg, nil, nil, fmt.Errorf("logger: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, nil, err
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("mongo: %w", err)
	}
	return cfg, client, client.Database(cfg.DBName), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, client, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	defer func() { _ = zap.L().Sync() }()

	log := logger.Component("main")
	log.Info("mongo database selected", zap.String("db", db.Name()))

	if err := database.EnsureIndexes(db); err != nil {
		log.Warn("index warning", zap.Error(err))
	}
	stores := store.NewMongo(db)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("aws config: %w", err)
	}
	imageStore := images.NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.AWSRegion, cfg.S3PublicBaseURL)
	if cfg.S3Bucket == "" {
		log.Warn("S3_BUCKET not set, uploads disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.SESFromEmail != "" {
		sender = mailer.NewSESSender(ses.NewFromConfig(awsCfg), cfg.SESFromEmail)
	} else {
		log.Warn("SES_FROM_EMAIL not set, emails are only logged")
	}
	mail := mailer.New(sender, cfg.AdminEmail, collector)

	stripe := payments.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if cfg.StripeSecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY not set, payment intents disabled")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, 5*time.Minute)
	defer limiter.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.Deps{
		DB:          db,
		Users:       stores.Users,
		Products:    stores.Products,
		Designs:     stores.Designs,
		Subscribers: stores.Subscribers,
		Trials:      stores.Trials,
		Tokens:      auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		Checkout: checkout.NewService(stores.Users, stores.Products, stores.Orders, stripe, mail, collector,
			checkout.Config{ShippingFee: cfg.ShippingFee, Currency: cfg.Currency}),
		Orders:    orders.NewService(stores.Orders, mail),
		Rewards:   rewards.NewService(stores.Users, stores.RewardClaims, mail, collector),
		Analytics: analytics.NewService(analytics.NewMongoSource(db)),
		Webhooks:  stripe,
		Images:    imageStore,
		Mail:      mail,
		Metrics:   collector,
		Gatherer:  registry,
		Limiter:   limiter,
		Logger:    zap.L(),
		Auth:      handlers.AuthOptions{CookieSecure: cfg.CookieSecure},
		TrialCity: cfg.TrialCity,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
