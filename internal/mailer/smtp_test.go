package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"
)

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage(Email{
		From:     "no-reply@example.com",
		FromName: "Parlat",
		To:       []string{"partner@example.com"},
		Subject:  "Commission earned",
		TextBody: "You earned 150.00 ARS",
		HTMLBody: "<p>You earned 150.00 ARS</p>",
	})
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "partner@example.com" {
		t.Fatalf("To = %v", got)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{"Subject: Commission earned", "text/plain", "text/html"} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestBuildMessageValidation(t *testing.T) {
	if _, err := buildMessage(Email{To: []string{"a@b.c"}}); err == nil {
		t.Error("expected error without from")
	}
	if _, err := buildMessage(Email{From: "a@b.c"}); err == nil {
		t.Error("expected error without recipients")
	}
}

func TestSendHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	m := &SMTPMailer{send: func(...*gomail.Message) error {
		<-release // server that accepts but never greets
		return nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Send(ctx, Email{From: "no-reply@example.com", To: []string{"p@example.com"}, Subject: "x", TextBody: "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Fatalf("Send blocked for %v", d)
	}
}

func TestSendReportsTransportError(t *testing.T) {
	m := &SMTPMailer{send: func(...*gomail.Message) error { return errors.New("535 auth failed") }}
	err := m.Send(context.Background(), Email{From: "no-reply@example.com", To: []string{"p@example.com"}, TextBody: "x"})
	if err == nil || !strings.Contains(err.Error(), "535") {
		t.Fatalf("err = %v", err)
	}
}
