package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/softwareparlat/main/internal/config"
	"github.com/softwareparlat/main/internal/modules/mercadopago"
	"github.com/softwareparlat/main/internal/modules/partners"
	"github.com/softwareparlat/main/internal/modules/payments"
	"github.com/softwareparlat/main/internal/modules/providerconfig"
	"github.com/softwareparlat/main/internal/shared/database"
)

// sweeppending re-drives payments whose webhook never arrived by searching
// the provider for their correlation key. Safe to run from cron.
func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	olderThan := flag.Duration("older-than", cfg.Settlement.SweepOlderThan, "Only sweep payments pending longer than this")
	limit := flag.Int("limit", cfg.Settlement.SweepBatchSize, "Max payments per run")
	flag.Parse()

	db, err := database.OpenMySQL(cfg.DBDSN, database.DefaultOptions(), logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	env := mercadopago.Config{
		AccessToken: cfg.MercadoPago.AccessToken,
		BaseURL:     cfg.MercadoPago.BaseURL,
		Sandbox:     cfg.MercadoPago.Sandbox,
		Timeout:     cfg.MercadoPago.Timeout,
	}
	pcSvc := providerconfig.NewService(providerconfig.NewRepo(db), env, cfg.Settlement.Currency)
	provider := providerconfig.NewProvider(pcSvc, cfg.MercadoPago.WebhookSecret)

	rec := payments.NewReconciler(db, provider, partners.NewLedger(), cfg.MercadoPago.Timeout)
	rec.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := rec.SweepPending(ctx, *olderThan, *limit)
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
	logger.Info("sweep finished",
		"scanned", rep.Scanned,
		"completed", rep.Completed,
		"failed", rep.Failed,
		"still_open", rep.StillOpen,
		"errors", rep.Errors,
	)
	if rep.Errors > 0 {
		os.Exit(2)
	}
}
