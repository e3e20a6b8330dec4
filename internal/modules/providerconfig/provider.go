package providerconfig

import (
	"context"
	"errors"

	"github.com/softwareparlat/main/internal/modules/mercadopago"
	"github.com/softwareparlat/main/internal/modules/payments"
)

// Provider resolves credentials on every call so admin updates apply without
// a restart. An active stored record wins over env credentials.
type Provider struct {
	svc              *Service
	envWebhookSecret string
}

var _ payments.Provider = (*Provider)(nil)

func NewProvider(svc *Service, envWebhookSecret string) *Provider {
	return &Provider{svc: svc, envWebhookSecret: envWebhookSecret}
}

func (p *Provider) Name() string { return mercadopago.ProviderName }

func (p *Provider) client(ctx context.Context) (*mercadopago.Client, error) {
	pc, err := p.svc.Get(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		return mercadopago.New(p.svc.env), nil
	case err != nil:
		return nil, errors.Join(payments.ErrProviderUnavailable, err)
	case !pc.IsActive || pc.AccessToken == "":
		return mercadopago.New(p.svc.env), nil
	}
	return mercadopago.New(p.svc.clientConfig(pc)), nil
}

func (p *Provider) CreatePreference(ctx context.Context, req payments.PreferenceRequest) (payments.Preference, error) {
	c, err := p.client(ctx)
	if err != nil {
		return payments.Preference{}, err
	}
	return c.CreatePreference(ctx, req)
}

func (p *Provider) FetchPayment(ctx context.Context, id string) (payments.ProviderPayment, error) {
	c, err := p.client(ctx)
	if err != nil {
		return payments.ProviderPayment{}, err
	}
	return c.FetchPayment(ctx, id)
}

func (p *Provider) SearchByCorrelationKey(ctx context.Context, key string) ([]payments.ProviderPayment, error) {
	c, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	return c.SearchByCorrelationKey(ctx, key)
}

// WebhookSecret returns the signing secret from the active record, else env.
// Empty means signature verification is off.
func (p *Provider) WebhookSecret(ctx context.Context) string {
	pc, err := p.svc.Get(ctx)
	if err == nil && pc.IsActive && pc.WebhookSecret != "" {
		return pc.WebhookSecret
	}
	return p.envWebhookSecret
}
