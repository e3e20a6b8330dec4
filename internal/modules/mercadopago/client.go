// Package mercadopago is the HTTP client for the Mercado Pago checkout and
// payments APIs. Credentials arrive as an explicit Config value.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/softwareparlat/main/internal/modules/payments"
)

const (
	ProviderName   = "mercadopago"
	DefaultBaseURL = "https://api.mercadopago.com"
)

type BackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type Config struct {
	AccessToken     string
	BaseURL         string
	NotificationURL string
	BackURLs        BackURLs
	Sandbox         bool
	Timeout         time.Duration
	HTTPClient      *http.Client // optional
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc}
}

var _ payments.Provider = (*Client)(nil)

func (c *Client) Name() string { return ProviderName }

type preferenceItem struct {
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id,omitempty"`
}

type preferenceBody struct {
	Items             []preferenceItem `json:"items"`
	Payer             *payer           `json:"payer,omitempty"`
	BackURLs          *BackURLs        `json:"back_urls,omitempty"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	ExternalReference string           `json:"external_reference,omitempty"`
	NotificationURL   string           `json:"notification_url,omitempty"`
}

type payer struct {
	Email string `json:"email"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

func (c *Client) CreatePreference(ctx context.Context, req payments.PreferenceRequest) (payments.Preference, error) {
	body := preferenceBody{
		Items: []preferenceItem{{
			Title:      req.Description,
			Quantity:   1,
			UnitPrice:  json.Number(req.Amount.StringFixed(2)),
			CurrencyID: req.Currency,
		}},
		ExternalReference: req.CorrelationKey,
		NotificationURL:   c.cfg.NotificationURL,
	}
	if req.BuyerEmail != "" {
		body.Payer = &payer{Email: req.BuyerEmail}
	}
	if c.cfg.BackURLs.Success != "" {
		bu := c.cfg.BackURLs
		body.BackURLs = &bu
		body.AutoReturn = "approved"
	}

	var out preferenceResponse
	// correlation key doubles as idempotency key so a retried create is not duplicated
	idem := req.CorrelationKey
	if idem == "" {
		idem = uuid.NewString()
	}
	status, err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, idem, &out)
	if err != nil {
		return payments.Preference{}, err
	}
	if status >= 400 {
		return payments.Preference{}, fmt.Errorf("%w: status %d", payments.ErrProviderRejected, status)
	}
	if out.ID == "" {
		return payments.Preference{}, fmt.Errorf("%w: empty preference id", payments.ErrProviderRejected)
	}

	redirect := out.InitPoint
	if c.cfg.Sandbox && out.SandboxInitPoint != "" {
		redirect = out.SandboxInitPoint
	}
	return payments.Preference{ID: out.ID, RedirectURL: redirect}, nil
}

type paymentResource struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
}

func (p paymentResource) toProvider() payments.ProviderPayment {
	return payments.ProviderPayment{
		ID:             p.ID.String(),
		Status:         p.Status,
		StatusDetail:   p.StatusDetail,
		CorrelationKey: p.ExternalReference,
		Amount:         p.TransactionAmount,
		Currency:       p.CurrencyID,
	}
}

func (c *Client) FetchPayment(ctx context.Context, providerPaymentID string) (payments.ProviderPayment, error) {
	var out paymentResource
	status, err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(providerPaymentID), nil, "", &out)
	if err != nil {
		return payments.ProviderPayment{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return payments.ProviderPayment{}, fmt.Errorf("%w: %s", payments.ErrProviderNotFound, providerPaymentID)
	case status >= 400:
		// bad credentials or throttling: retry once an operator fixes config
		return payments.ProviderPayment{}, fmt.Errorf("%w: status %d", payments.ErrProviderUnavailable, status)
	}
	return out.toProvider(), nil
}

type searchResponse struct {
	Results []paymentResource `json:"results"`
}

func (c *Client) SearchByCorrelationKey(ctx context.Context, correlationKey string) ([]payments.ProviderPayment, error) {
	q := url.Values{}
	q.Set("external_reference", correlationKey)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")

	var out searchResponse
	status, err := c.do(ctx, http.MethodGet, "/v1/payments/search?"+q.Encode(), nil, "", &out)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: status %d", payments.ErrProviderUnavailable, status)
	}
	res := make([]payments.ProviderPayment, 0, len(out.Results))
	for _, r := range out.Results {
		res = append(res, r.toProvider())
	}
	return res, nil
}

// do returns the HTTP status for 4xx so callers can map it; transport
// failures and 5xx/429 come back as ErrProviderUnavailable.
func (c *Client) do(ctx context.Context, method, path string, payload any, idempotencyKey string, out any) (int, error) {
	if c.cfg.AccessToken == "" {
		return 0, fmt.Errorf("%w: access token not configured", payments.ErrProviderUnavailable)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", payments.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("%w: read body: %v", payments.ErrProviderUnavailable, err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, fmt.Errorf("%w: status %d", payments.ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, nil
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %v", payments.ErrProviderRejected, err)
		}
	}
	return resp.StatusCode, nil
}

// IsConfigured reports whether the client has credentials.
func (c *Client) IsConfigured() bool { return c.cfg.AccessToken != "" }
