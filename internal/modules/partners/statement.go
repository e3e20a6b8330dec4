package partners

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/softwareparlat/main/internal/storage"
)

const statementPageSize = 200

type ExportReport struct {
	Partners int // partners with at least one commission in the period
	Files    []string
}

// StatementExporter writes one CSV per partner and month to storage.
type StatementExporter struct {
	repo   *Repo
	store  storage.Storage
	logger *slog.Logger
}

func NewStatementExporter(repo *Repo, store storage.Storage, logger *slog.Logger) *StatementExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementExporter{repo: repo, store: store, logger: logger}
}

// Export covers the calendar month (UTC) containing month. Re-running
// replaces the month's files.
func (e *StatementExporter) Export(ctx context.Context, month time.Time) (ExportReport, error) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	period := from.Format("2006-01")

	var rep ExportReport
	after := ""
	for {
		page, err := e.repo.ListAll(ctx, after, statementPageSize)
		if err != nil {
			return rep, fmt.Errorf("list partners: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			cs, err := e.repo.ListCommissionsBetween(ctx, p.ID, from, to)
			if err != nil {
				return rep, fmt.Errorf("list commissions for %s: %w", p.ID, err)
			}
			if len(cs) == 0 {
				continue
			}

			var buf bytes.Buffer
			if err := WriteStatement(&buf, p, cs); err != nil {
				return rep, err
			}
			res, err := e.store.Put(ctx, &buf, storage.PutInput{
				Key:         fmt.Sprintf("statements/%s/%s.csv", period, p.ID),
				ContentType: "text/csv",
			})
			if err != nil {
				return rep, fmt.Errorf("store statement for %s: %w", p.ID, err)
			}
			rep.Partners++
			rep.Files = append(rep.Files, res.Key)
			e.logger.InfoContext(ctx, "statement exported", "partner_id", p.ID, "period", period, "commissions", len(cs), "key", res.Key)
		}
		after = page[len(page)-1].ID
	}
	return rep, nil
}

// WriteStatement renders commissions as CSV with a trailing total row.
func WriteStatement(buf *bytes.Buffer, p Partner, cs []Commission) error {
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"commission_id", "payment_id", "created_at", "amount", "rate", "currency", "status"})

	total := decimal.Zero
	for _, c := range cs {
		total = total.Add(c.Amount)
		_ = w.Write([]string{
			c.ID,
			c.PaymentID,
			c.CreatedAt.UTC().Format(time.RFC3339),
			c.Amount.StringFixed(2),
			c.Rate.StringFixed(2),
			c.Currency,
			c.Status,
		})
	}
	_ = w.Write([]string{"total", p.ReferralCode, "", total.StringFixed(2), "", "", ""})
	w.Flush()
	return w.Error()
}
