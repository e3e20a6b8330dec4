package providerconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/softwareparlat/main/internal/modules/mercadopago"
	"github.com/softwareparlat/main/internal/modules/payments"
)

const maskPrefixLen = 10

// Mask keeps the first ten characters of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= maskPrefixLen {
		return s[:1] + "..."
	}
	return s[:maskPrefixLen] + "..."
}

func isMasked(s string) bool { return strings.HasSuffix(s, "...") }

// View is the admin-facing shape; secrets never leave the server unmasked.
type View struct {
	ProviderConfig
	AccessToken   string `json:"accessToken"`
	ClientSecret  string `json:"clientSecret,omitempty"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
}

func NewView(pc ProviderConfig) View {
	return View{
		ProviderConfig: pc,
		AccessToken:    Mask(pc.AccessToken),
		ClientSecret:   Mask(pc.ClientSecret),
		WebhookSecret:  Mask(pc.WebhookSecret),
	}
}

type UpdateInput struct {
	AccessToken     string
	PublicKey       string
	ClientID        string
	ClientSecret    string
	WebhookSecret   string
	NotificationURL string
	IsSandbox       bool
	IsActive        bool
}

type Service struct {
	repo     *Repo
	env      mercadopago.Config
	currency string
	logger   *slog.Logger
}

// NewService takes the env-level client config used when no active record is stored.
func NewService(repo *Repo, env mercadopago.Config, currency string) *Service {
	return &Service{repo: repo, env: env, currency: currency, logger: slog.Default()}
}

func (s *Service) SetLogger(l *slog.Logger) { s.logger = l }

func (s *Service) Get(ctx context.Context) (ProviderConfig, error) {
	return s.repo.Get(ctx, mercadopago.ProviderName)
}

// Update upserts the record. Empty or masked secrets keep the stored value.
func (s *Service) Update(ctx context.Context, in UpdateInput, updatedBy string) (ProviderConfig, error) {
	cur, err := s.repo.Get(ctx, mercadopago.ProviderName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return ProviderConfig{}, err
	}

	pc := ProviderConfig{
		Provider:        mercadopago.ProviderName,
		AccessToken:     keepSecret(in.AccessToken, cur.AccessToken),
		PublicKey:       strings.TrimSpace(in.PublicKey),
		ClientID:        strings.TrimSpace(in.ClientID),
		ClientSecret:    keepSecret(in.ClientSecret, cur.ClientSecret),
		WebhookSecret:   keepSecret(in.WebhookSecret, cur.WebhookSecret),
		NotificationURL: strings.TrimSpace(in.NotificationURL),
		IsSandbox:       in.IsSandbox,
		IsActive:        in.IsActive,
		UpdatedBy:       updatedBy,
	}
	if pc.AccessToken == "" {
		return ProviderConfig{}, fmt.Errorf("%w: access token required", ErrInvalidConfig)
	}
	if pc.PublicKey == "" {
		return ProviderConfig{}, fmt.Errorf("%w: public key required", ErrInvalidConfig)
	}

	out, err := s.repo.Upsert(ctx, pc)
	if err != nil {
		return ProviderConfig{}, err
	}
	s.logger.InfoContext(ctx, "provider config updated", "provider", out.Provider, "version", out.Version, "updated_by", updatedBy)
	return out, nil
}

func keepSecret(incoming, current string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" || isMasked(incoming) {
		return current
	}
	return incoming
}

// TestConnection creates a 1.00 preference with the stored credentials and
// records the outcome on the record.
func (s *Service) TestConnection(ctx context.Context) (TestResult, error) {
	pc, err := s.repo.Get(ctx, mercadopago.ProviderName)
	if err != nil {
		return TestResult{}, err
	}

	client := mercadopago.New(s.clientConfig(pc))
	pref, perr := client.CreatePreference(ctx, payments.PreferenceRequest{
		Amount:         decimal.NewFromInt(1),
		Currency:       s.currency,
		Description:    "Test Connection",
		CorrelationKey: "test-" + uuid.NewString(),
	})

	res := TestResult{TestedAt: time.Now().UTC()}
	if perr != nil {
		res.Message = "connection to provider failed"
		res.Error = perr.Error()
	} else {
		res.Success = true
		res.Message = "connection to provider succeeded"
		res.PreferenceID = pref.ID
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return TestResult{}, err
	}
	if err := s.repo.RecordTest(ctx, pc.ID, res.TestedAt, raw); err != nil {
		return TestResult{}, err
	}
	s.logger.InfoContext(ctx, "provider connection tested", "provider", pc.Provider, "success", res.Success)
	return res, nil
}

func (s *Service) clientConfig(pc ProviderConfig) mercadopago.Config {
	cfg := s.env
	cfg.AccessToken = pc.AccessToken
	cfg.Sandbox = pc.IsSandbox
	if pc.NotificationURL != "" {
		cfg.NotificationURL = pc.NotificationURL
	}
	return cfg
}
