// Package payments adapts the supported payment service providers behind a
// single interface the checkout flow drives.
package payments

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or PSP confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the PSP reports the payment as captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the PSP reports a terminal failure.
	StatusFailed Status = "failed"
)

// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// LineItem describes a single order line included in a checkout session.
type LineItem struct {
	Name     string
	SKU      string
	Quantity int64
	Amount   int64
	Currency string
}

// CheckoutRequest carries everything needed to start a PSP payment for an
// order. Amount is in minor units and always derives from the stored order
// total, never from client input.
type CheckoutRequest struct {
	OrderID        string
	OrderNumber    string
	Amount         int64
	Currency       string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Locale         string
	IdempotencyKey string
	Items          []LineItem
}

// CheckoutSession is the PSP session handed back to the storefront. The
// browser follows RedirectURL to complete payment.
type CheckoutSession struct {
	ID          string
	Provider    string
	RedirectURL string
	IntentID    string
	ExpiresAt   time.Time
}

// CaptureRequest finalises an approved payment, used by the PayPal return leg.
type CaptureRequest struct {
	SessionID      string
	IdempotencyKey string
}

// PaymentDetails normalises PSP-specific payment state.
type PaymentDetails struct {
	Provider  string
	SessionID string
	Status    Status
	Amount    int64
	Currency  string
}

// Provider is the contract each PSP adapter implements.
type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	CapturePayment(ctx context.Context, req CaptureRequest) (PaymentDetails, error)
}

// Manager holds the configured providers and routes checkout requests.
type Manager struct {
	providers map[string]Provider
}

// NewManager registers the provided adapters keyed by their names.
func NewManager(providers ...Provider) *Manager {
	m := &Manager{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		m.providers[strings.ToLower(strings.TrimSpace(p.Name()))] = p
	}
	return m
}

// Provider returns the adapter registered under name.
func (m *Manager) Provider(name string) (Provider, error) {
	if m == nil {
		return nil, ErrUnsupportedProvider
	}
	p, ok := m.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrUnsupportedProvider
	}
	return p, nil
}
