package partners

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/softwareparlat/main/internal/mailer"
	"github.com/softwareparlat/main/internal/modules/payments"
)

// max concurrent sends; further notices are dropped while all are busy
const notifyInFlight = 8

// EmailNotifier mails the partner after a commission commits. Sends run in
// the background so settlement never waits on SMTP.
type EmailNotifier struct {
	mailer   mailer.Service
	from     string
	fromName string
	timeout  time.Duration
	logger   *slog.Logger

	slots chan struct{}
	wg    sync.WaitGroup
}

func NewEmailNotifier(m mailer.Service, from, fromName string, logger *slog.Logger) *EmailNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailNotifier{
		mailer:   m,
		from:     from,
		fromName: fromName,
		timeout:  10 * time.Second,
		logger:   logger,
		slots:    make(chan struct{}, notifyInFlight),
	}
}

func (n *EmailNotifier) SetTimeout(d time.Duration) { n.timeout = d }

// Wait blocks until in-flight sends finish. Call it on shutdown.
func (n *EmailNotifier) Wait() { n.wg.Wait() }

var _ payments.CommissionNotifier = (*EmailNotifier)(nil)

func (n *EmailNotifier) CommissionCredited(ctx context.Context, c payments.CreditResult) {
	if c.PartnerEmail == "" {
		return
	}

	select {
	case n.slots <- struct{}{}:
	default:
		n.logger.WarnContext(ctx, "commission email dropped, mailer busy", "partner_id", c.PartnerID, "commission_id", c.CommissionID)
		return
	}

	// detached from the request so the response does not cancel the send
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() { <-n.slots }()
		defer cancel()
		n.send(sendCtx, c)
	}()
}

func (n *EmailNotifier) send(ctx context.Context, c payments.CreditResult) {
	amount := c.Amount.StringFixed(2) + " " + c.Currency
	err := n.mailer.Send(ctx, mailer.Email{
		From:     n.from,
		FromName: n.fromName,
		To:       []string{c.PartnerEmail},
		Subject:  "You earned a commission",
		TextBody: fmt.Sprintf("A referred payment was completed. Commission: %s (rate %s%%).", amount, c.Rate.StringFixed(2)),
		HTMLBody: fmt.Sprintf("<p>A referred payment was completed.</p><p><strong>Commission:</strong> %s (rate %s%%)</p>", amount, c.Rate.StringFixed(2)),
	})
	if err != nil {
		n.logger.WarnContext(ctx, "commission email failed", "partner_id", c.PartnerID, "commission_id", c.CommissionID, "err", err)
	}
}
