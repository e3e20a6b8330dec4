package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/softwareparlat/main/internal/config"
	"github.com/softwareparlat/main/internal/shared/database"
)

var statements = []struct {
	table string
	ddl   string
}{
	{"payments", `
	CREATE TABLE IF NOT EXISTS payments (
	  id CHAR(36) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  project_id CHAR(36) NULL,
	  partner_id CHAR(36) NULL,
	  amount DECIMAL(10,2) NOT NULL,
	  currency CHAR(3) NOT NULL,
	  status VARCHAR(16) NOT NULL,
	  description VARCHAR(255) NOT NULL,
	  correlation_key VARCHAR(64) NOT NULL,
	  provider VARCHAR(32) NOT NULL,
	  provider_preference_id VARCHAR(128) NULL,
	  provider_payment_id VARCHAR(64) NULL,
	  provider_status VARCHAR(32) NULL,
	  provider_status_detail VARCHAR(64) NULL,
	  error_message VARCHAR(255) NULL,
	  metadata JSON NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  completed_at DATETIME(3) NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_payments_correlation_key (correlation_key),
	  KEY ix_payments_user_id (user_id),
	  KEY ix_payments_partner_id (partner_id),
	  KEY ix_payments_provider_payment_id (provider_payment_id),
	  KEY ix_payments_status_created (status, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"partners", `
	CREATE TABLE IF NOT EXISTS partners (
	  id CHAR(36) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  referral_code VARCHAR(16) NOT NULL,
	  contact_email VARCHAR(255) NOT NULL DEFAULT '',
	  commission_rate DECIMAL(5,2) NOT NULL,
	  total_earnings DECIMAL(12,2) NOT NULL DEFAULT 0,
	  total_sales INT NOT NULL DEFAULT 0,
	  is_active TINYINT(1) NOT NULL DEFAULT 1,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_partners_user_id (user_id),
	  UNIQUE KEY ux_partners_referral_code (referral_code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"commissions", `
	CREATE TABLE IF NOT EXISTS commissions (
	  id CHAR(36) NOT NULL,
	  partner_id CHAR(36) NOT NULL,
	  payment_id CHAR(36) NOT NULL,
	  amount DECIMAL(10,2) NOT NULL,
	  rate DECIMAL(5,2) NOT NULL,
	  currency CHAR(3) NOT NULL,
	  status VARCHAR(16) NOT NULL,
	  paid_at DATETIME(3) NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_commissions_payment_id (payment_id),
	  KEY ix_commissions_partner_created (partner_id, created_at),
	  CONSTRAINT fk_commissions_partner FOREIGN KEY (partner_id) REFERENCES partners(id) ON DELETE RESTRICT,
	  CONSTRAINT fk_commissions_payment FOREIGN KEY (payment_id) REFERENCES payments(id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"provider_events", `
	CREATE TABLE IF NOT EXISTS provider_events (
	  id CHAR(36) NOT NULL,
	  provider VARCHAR(32) NOT NULL,
	  data_id VARCHAR(64) NOT NULL,
	  event_type VARCHAR(64) NOT NULL,
	  request_id VARCHAR(64) NOT NULL DEFAULT '',
	  payload_json JSON NULL,
	  outcome VARCHAR(16) NOT NULL,
	  payment_id CHAR(36) NULL,
	  process_error VARCHAR(255) NULL,
	  received_at DATETIME(3) NOT NULL,
	  processed_at DATETIME(3) NULL,
	  PRIMARY KEY (id),
	  KEY ix_provider_events_provider_data (provider, data_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"provider_configs", `
	CREATE TABLE IF NOT EXISTS provider_configs (
	  id CHAR(36) NOT NULL,
	  provider VARCHAR(32) NOT NULL,
	  access_token VARCHAR(255) NOT NULL,
	  public_key VARCHAR(255) NOT NULL,
	  client_id VARCHAR(128) NULL,
	  client_secret VARCHAR(255) NULL,
	  webhook_secret VARCHAR(255) NULL,
	  notification_url VARCHAR(512) NULL,
	  is_sandbox TINYINT(1) NOT NULL DEFAULT 1,
	  is_active TINYINT(1) NOT NULL DEFAULT 1,
	  version INT NOT NULL DEFAULT 1,
	  last_tested_at DATETIME(3) NULL,
	  test_result JSON NULL,
	  updated_by CHAR(36) NOT NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_provider_configs_provider (provider)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

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

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}
	defer sqlDB.Close()

	for _, s := range statements {
		if _, err := sqlDB.Exec(s.ddl); err != nil {
			log.Fatalf("Failed to create %s: %v", s.table, err)
		}
		logger.Info("table ready", "table", s.table)
	}
}
