package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/strengthworks/storefront-api/internal/domain"
)

const (
	paypalSandboxURL = "https://api-m.sandbox.paypal.com"
	paypalLiveURL    = "https://api-m.paypal.com"

	// tokens are refreshed slightly before PayPal's reported expiry
	paypalTokenSlack = 60 * time.Second
)

// PayPalProvider implements Provider against the PayPal Orders v2 API using
// client-credentials OAuth.
type PayPalProvider struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	clock        func() time.Time
	logger       *zap.Logger

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// PayPalConfig configures the PayPalProvider.
type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	// Mode selects the API host: "live" or "sandbox".
	Mode string
	// BaseURL overrides the host derived from Mode, primarily for tests.
	BaseURL    string
	HTTPClient *http.Client
	Clock      func() time.Time
	Logger     *zap.Logger
}

// NewPayPalProvider constructs a PayPal adapter from the given configuration.
func NewPayPalProvider(cfg PayPalConfig) (*PayPalProvider, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("paypal: client credentials are required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		if strings.EqualFold(strings.TrimSpace(cfg.Mode), "live") {
			baseURL = paypalLiveURL
		} else {
			baseURL = paypalSandboxURL
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PayPalProvider{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		clock:        clock,
		logger:       logger,
	}, nil
}

// Name implements Provider.
func (p *PayPalProvider) Name() string { return "paypal" }

// SettlementCurrency maps an order currency onto the currencies the PayPal
// account settles in. Only an exact "USD" stays USD; everything else,
// including lowercase variants, settles in EUR.
func SettlementCurrency(currency string) string {
	if currency == "USD" {
		return "USD"
	}
	return "EUR"
}

type paypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type paypalOrderResult struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	Links         []paypalLink `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				Amount struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateCheckoutSession creates a PayPal order with intent CAPTURE and returns
// the approval link the browser is redirected to.
func (p *PayPalProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	if p == nil {
		return CheckoutSession{}, errors.New("paypal: provider is nil")
	}
	if req.Amount <= 0 {
		return CheckoutSession{}, fmt.Errorf("paypal: invalid amount %d", req.Amount)
	}

	currency := SettlementCurrency(req.Currency)
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"reference_id": req.OrderID,
				"custom_id":    req.OrderNumber,
				"amount": map[string]string{
					"currency_code": currency,
					"value":         domain.FormatAmount(req.Amount),
				},
			},
		},
		"application_context": map[string]string{
			"return_url": req.SuccessURL,
			"cancel_url": req.CancelURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("paypal: encode order: %w", err)
	}

	var result paypalOrderResult
	if err := p.call(ctx, http.MethodPost, "/v2/checkout/orders", body, req.IdempotencyKey, &result); err != nil {
		return CheckoutSession{}, err
	}

	approveURL := ""
	for _, link := range result.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
			break
		}
	}
	if approveURL == "" {
		return CheckoutSession{}, fmt.Errorf("paypal: order %s has no approve link", result.ID)
	}

	p.logger.Info("paypal order created",
		zap.String("paypal_order_id", result.ID),
		zap.String("order_id", req.OrderID),
		zap.String("currency", currency))

	return CheckoutSession{
		ID:          result.ID,
		Provider:    p.Name(),
		RedirectURL: approveURL,
		ExpiresAt:   p.clock().UTC().Add(3 * time.Hour),
	}, nil
}

// CapturePayment captures an approved PayPal order.
func (p *PayPalProvider) CapturePayment(ctx context.Context, req CaptureRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("paypal: provider is nil")
	}
	orderID := strings.TrimSpace(req.SessionID)
	if orderID == "" {
		return PaymentDetails{}, errors.New("paypal: order id is required")
	}

	var result paypalOrderResult
	path := "/v2/checkout/orders/" + orderID + "/capture"
	if err := p.call(ctx, http.MethodPost, path, nil, req.IdempotencyKey, &result); err != nil {
		return PaymentDetails{}, err
	}

	details := PaymentDetails{
		Provider:  p.Name(),
		SessionID: result.ID,
		Status:    StatusPending,
	}
	if result.Status == "COMPLETED" {
		details.Status = StatusSucceeded
	}
	for _, unit := range result.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			if amount, err := domain.ParseAmount(capture.Amount.Value); err == nil {
				details.Amount = amount
				details.Currency = capture.Amount.CurrencyCode
			}
		}
	}
	return details, nil
}

func (p *PayPalProvider) call(ctx context.Context, method, path string, body []byte, idempotencyKey string, out any) error {
	token, err := p.accessTokenLocked(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("paypal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		req.Header.Set("PayPal-Request-Id", key)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("paypal: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("paypal: %s %s status %d: %s", method, path, resp.StatusCode, payload)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("paypal: decode response: %w", err)
	}
	return nil
}

func (p *PayPalProvider) accessTokenLocked(ctx context.Context) (string, error) {
	p.tokenMu.Lock()
	defer p.tokenMu.Unlock()

	now := p.clock().UTC()
	if p.accessToken != "" && now.Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	auth := base64.StdEncoding.EncodeToString([]byte(p.clientID + ":" + p.clientSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("paypal: build token request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal: token status %d: %s", resp.StatusCode, payload)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("paypal: decode token: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return "", errors.New("paypal: empty access token")
	}

	p.accessToken = token.AccessToken
	p.tokenExpiry = now.Add(time.Duration(token.ExpiresIn)*time.Second - paypalTokenSlack)
	return p.accessToken, nil
}
