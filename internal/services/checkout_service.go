package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/strengthworks/storefront-api/internal/domain"
	"github.com/strengthworks/storefront-api/internal/payments"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutPaymentFailed indicates the PSP session could not be created.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
)

// paymentRouter abstracts payments.Manager for easier testing.
type paymentRouter interface {
	Provider(name string) (payments.Provider, error)
}

// orderReader abstracts OrderService for easier testing.
type orderReader interface {
	Get(ctx context.Context, orderID int64, orderKey string) (domain.Order, error)
	MarkPaid(ctx context.Context, orderID int64, transactionID string) error
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Orders        orderReader
	Payments      paymentRouter
	PublicBaseURL string
	Logger        *zap.Logger
	Clock         func() time.Time
}

// CheckoutService drives PSP payments for existing orders. The amount and
// currency always come from the stored order, never from the request body.
type CheckoutService struct {
	orders        orderReader
	payments      paymentRouter
	publicBaseURL string
	logger        *zap.Logger
	now           func() time.Time
}

// StartPaymentCommand identifies the order to pay and how to get back to the shop.
type StartPaymentCommand struct {
	Provider       string
	OrderID        int64
	OrderKey       string
	SuccessURL     string
	CancelURL      string
	Locale         string
	IdempotencyKey string
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (*CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order service is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment manager is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &CheckoutService{
		orders:        deps.Orders,
		payments:      deps.Payments,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(deps.PublicBaseURL), "/"),
		logger:        logger,
		now:           func() time.Time { return clock().UTC() },
	}, nil
}

// StartPayment loads the order, recomputes the charge from its stored total,
// and opens a session with the requested provider.
func (s *CheckoutService) StartPayment(ctx context.Context, cmd StartPaymentCommand) (payments.CheckoutSession, error) {
	provider, err := s.payments.Provider(cmd.Provider)
	if err != nil {
		return payments.CheckoutSession{}, err
	}

	order, err := s.orders.Get(ctx, cmd.OrderID, cmd.OrderKey)
	if err != nil {
		return payments.CheckoutSession{}, err
	}

	amount, err := domain.ParseAmount(order.Total)
	if err != nil {
		return payments.CheckoutSession{}, fmt.Errorf("%w: order %d has unparseable total %q", ErrCheckoutInvalidInput, order.ID, order.Total)
	}
	if amount <= 0 {
		return payments.CheckoutSession{}, fmt.Errorf("%w: order %d has non-positive total", ErrCheckoutInvalidInput, order.ID)
	}

	currency := domain.NormalizeCurrency(order.Currency, "EUR")

	items := make([]payments.LineItem, 0, len(order.LineItems))
	for _, line := range order.LineItems {
		lineTotal, err := domain.ParseAmount(line.Total)
		if err != nil || line.Quantity <= 0 {
			continue
		}
		items = append(items, payments.LineItem{
			Name:     domain.SanitizeText(line.Name),
			SKU:      line.SKU,
			Quantity: int64(line.Quantity),
			Amount:   lineTotal / int64(line.Quantity),
			Currency: currency,
		})
	}
	// line items that did not parse cleanly must not change the charge
	if itemsTotal(items) != amount {
		items = nil
	}

	session, err := provider.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		OrderID:        fmt.Sprintf("%d", order.ID),
		OrderNumber:    order.Number,
		Amount:         amount,
		Currency:       currency,
		CustomerEmail:  order.Billing.Email,
		SuccessURL:     s.returnURL(cmd.SuccessURL, order),
		CancelURL:      s.returnURL(cmd.CancelURL, order),
		Locale:         cmd.Locale,
		IdempotencyKey: cmd.IdempotencyKey,
		Items:          items,
	})
	if err != nil {
		s.logger.Error("checkout session failed",
			zap.String("provider", cmd.Provider),
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return payments.CheckoutSession{}, fmt.Errorf("%w: %v", ErrCheckoutPaymentFailed, err)
	}

	s.logger.Info("checkout session created",
		zap.String("provider", session.Provider),
		zap.Int64("order_id", order.ID),
		zap.Int64("amount", amount),
		zap.String("currency", currency))
	return session, nil
}

// CompletePayment captures an approved session and marks the order paid when
// the PSP reports success.
func (s *CheckoutService) CompletePayment(ctx context.Context, providerName string, orderID int64, orderKey, sessionID string) (payments.PaymentDetails, error) {
	provider, err := s.payments.Provider(providerName)
	if err != nil {
		return payments.PaymentDetails{}, err
	}

	order, err := s.orders.Get(ctx, orderID, orderKey)
	if err != nil {
		return payments.PaymentDetails{}, err
	}

	details, err := provider.CapturePayment(ctx, payments.CaptureRequest{SessionID: sessionID})
	if err != nil {
		return payments.PaymentDetails{}, fmt.Errorf("%w: %v", ErrCheckoutPaymentFailed, err)
	}

	if details.Status == payments.StatusSucceeded {
		if err := s.orders.MarkPaid(ctx, order.ID, details.SessionID); err != nil {
			s.logger.Error("mark paid failed", zap.Int64("order_id", order.ID), zap.Error(err))
			return details, err
		}
	}
	return details, nil
}

func (s *CheckoutService) returnURL(override string, order domain.Order) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	if s.publicBaseURL == "" {
		return ""
	}
	return s.publicBaseURL + "/checkout/order-received/" + fmt.Sprintf("%d", order.ID) + "?" + url.Values{"key": {order.OrderKey}}.Encode()
}

func itemsTotal(items []payments.LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Amount * item.Quantity
	}
	return total
}
