package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/softwareparlat/main/internal/config"
	"github.com/softwareparlat/main/internal/modules/partners"
	"github.com/softwareparlat/main/internal/shared/database"
)

// auditledger compares each partner's cached totals with its commissions
// and exits non-zero when any partner drifted.
func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := database.OpenMySQL(cfg.DBDSN, database.DefaultOptions(), logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	mismatches, err := partners.NewRepo(db).VerifyAggregates(context.Background())
	if err != nil {
		log.Fatalf("audit failed: %v", err)
	}
	for _, m := range mismatches {
		logger.Error("partner totals drifted",
			"partner_id", m.PartnerID,
			"total_earnings", m.TotalEarnings.StringFixed(2),
			"derived_earnings", m.DerivedEarnings.StringFixed(2),
			"total_sales", m.TotalSales,
			"derived_sales", m.DerivedSales,
		)
	}
	if len(mismatches) > 0 {
		os.Exit(1)
	}
	logger.Info("ledger consistent")
}
