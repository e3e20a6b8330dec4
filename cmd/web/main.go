package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/softwareparlat/main/internal/config"
	apphttp "github.com/softwareparlat/main/internal/http"
	"github.com/softwareparlat/main/internal/http/middleware"
	"github.com/softwareparlat/main/internal/mailer"
	"github.com/softwareparlat/main/internal/modules/mercadopago"
	"github.com/softwareparlat/main/internal/modules/partners"
	"github.com/softwareparlat/main/internal/modules/payments"
	"github.com/softwareparlat/main/internal/modules/providerconfig"
	"github.com/softwareparlat/main/internal/shared/database"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.OpenMySQL(cfg.DBDSN, database.DefaultOptions(), logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	envMP := mercadopago.Config{
		AccessToken:     cfg.MercadoPago.AccessToken,
		BaseURL:         cfg.MercadoPago.BaseURL,
		NotificationURL: cfg.MercadoPago.NotificationURL,
		BackURLs: mercadopago.BackURLs{
			Success: cfg.BaseURL + "/payment/success",
			Failure: cfg.BaseURL + "/payment/failure",
			Pending: cfg.BaseURL + "/payment/pending",
		},
		Sandbox: cfg.MercadoPago.Sandbox,
		Timeout: cfg.MercadoPago.Timeout,
	}

	pcSvc := providerconfig.NewService(providerconfig.NewRepo(db), envMP, cfg.Settlement.Currency)
	pcSvc.SetLogger(logger)
	provider := providerconfig.NewProvider(pcSvc, cfg.MercadoPago.WebhookSecret)

	partnerSvc := partners.NewService(db, cfg.Settlement.DefaultCommissionRate)
	partnerSvc.SetLogger(logger)

	checkout := payments.NewService(db, provider, partnerSvc.Repo(), cfg.Settlement.Currency, cfg.MercadoPago.Timeout)
	checkout.SetLogger(logger)

	reconciler := payments.NewReconciler(db, provider, partners.NewLedger(), cfg.MercadoPago.Timeout)
	reconciler.SetLogger(logger)
	var notifier *partners.EmailNotifier
	if cfg.SMTP.Enabled() {
		notifier = partners.NewEmailNotifier(mailer.NewSMTPMailer(cfg.SMTP), cfg.SMTP.From, cfg.SMTP.FromName, logger)
		reconciler.SetNotifier(notifier)
	} else {
		logger.Info("smtp not configured, commission emails disabled")
	}

	r := apphttp.NewRouter(logger, apphttp.Deps{
		DB:             db,
		JWTSecret:      []byte(cfg.JWT.Secret),
		RateLimiter:    middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst),
		Checkout:       checkout,
		Reconciler:     reconciler,
		Events:         payments.NewEventLog(db),
		WebhookSecrets: provider,

		SignatureTolerance: cfg.MercadoPago.SignatureTolerance,
		Partners:       partnerSvc,
		ProviderConfig: pcSvc,
	})

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	if notifier != nil {
		notifier.Wait()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
