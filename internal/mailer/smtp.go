package mailer

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/softwareparlat/main/internal/config"
)

type SMTPMailer struct {
	dialer *gomail.Dialer
	send   func(...*gomail.Message) error
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	return &SMTPMailer{dialer: d, send: d.DialAndSend}
}

// Send returns when the message is handed off or ctx is done. gomail does not
// take a context, so a stalled server leaves the dial goroutine behind until
// the connection fails; the caller is released either way.
func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := buildMessage(e)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- m.send(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send abandoned: %w", ctx.Err())
	}
}

func buildMessage(e Email) (*gomail.Message, error) {
	if e.From == "" {
		return nil, errors.New("mailer: from address required")
	}
	if len(e.AllRecipients()) == 0 {
		return nil, errors.New("mailer: no recipients")
	}

	msg := gomail.NewMessage()
	if e.FromName != "" {
		msg.SetAddressHeader("From", e.From, e.FromName)
	} else {
		msg.SetHeader("From", e.From)
	}
	if len(e.To) > 0 {
		msg.SetHeader("To", e.To...)
	}
	if len(e.Cc) > 0 {
		msg.SetHeader("Cc", e.Cc...)
	}
	if len(e.Bcc) > 0 {
		msg.SetHeader("Bcc", e.Bcc...)
	}
	msg.SetHeader("Subject", e.Subject)
	for k, v := range e.Headers {
		msg.SetHeader(k, v)
	}

	switch {
	case e.TextBody != "" && e.HTMLBody != "":
		msg.SetBody("text/plain", e.TextBody)
		msg.AddAlternative("text/html", e.HTMLBody)
	case e.HTMLBody != "":
		msg.SetBody("text/html", e.HTMLBody)
	default:
		msg.SetBody("text/plain", e.TextBody)
	}
	return msg, nil
}
