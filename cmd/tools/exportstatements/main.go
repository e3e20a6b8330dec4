package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/softwareparlat/main/internal/config"
	"github.com/softwareparlat/main/internal/modules/partners"
	"github.com/softwareparlat/main/internal/shared/database"
	"github.com/softwareparlat/main/internal/storage"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	prev := time.Now().UTC().AddDate(0, -1, 0).Format("2006-01")
	monthFlag := flag.String("month", prev, "Statement month (YYYY-MM), defaults to last month")
	flag.Parse()

	month, err := time.Parse("2006-01", *monthFlag)
	if err != nil {
		log.Fatalf("invalid -month %q: %v", *monthFlag, err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := database.OpenMySQL(cfg.DBDSN, database.DefaultOptions(), logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	rep, err := partners.NewStatementExporter(partners.NewRepo(db), store, logger).Export(ctx, month)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	logger.Info("statements exported", "month", *monthFlag, "partners", rep.Partners, "files", rep.Files)
}
