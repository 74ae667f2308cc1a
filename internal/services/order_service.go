package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/strengthworks/storefront-api/internal/domain"
)

var (
	// ErrOrderInvalidInput indicates a missing or malformed order reference.
	ErrOrderInvalidInput = errors.New("orders: invalid input")
	// ErrOrderKeyMismatch indicates the supplied order key does not match the order.
	ErrOrderKeyMismatch = errors.New("orders: order key mismatch")
)

// OrderServiceDeps wires the dependencies required by the order service.
type OrderServiceDeps struct {
	Gateway commerceGateway
	Logger  *zap.Logger
	Clock   func() time.Time
}

// OrderService reads orders from the store, gated by the per-order key so
// guests can only see their own orders.
type OrderService struct {
	gateway commerceGateway
	logger  *zap.Logger
	now     func() time.Time
}

// NewOrderService constructs an OrderService validating required dependencies.
func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("order service: commerce gateway is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &OrderService{
		gateway: deps.Gateway,
		logger:  logger,
		now:     func() time.Time { return clock().UTC() },
	}, nil
}

// Get fetches the order and verifies the caller-supplied order key against the
// stored one. The comparison is constant time.
func (s *OrderService) Get(ctx context.Context, orderID int64, orderKey string) (domain.Order, error) {
	if orderID <= 0 {
		return domain.Order{}, ErrOrderInvalidInput
	}
	orderKey = strings.TrimSpace(orderKey)
	if orderKey == "" {
		return domain.Order{}, ErrOrderInvalidInput
	}

	var order domain.Order
	if err := s.gateway.Get(ctx, fmt.Sprintf("orders/%d", orderID), nil, &order); err != nil {
		return domain.Order{}, err
	}

	if subtle.ConstantTimeCompare([]byte(order.OrderKey), []byte(orderKey)) != 1 {
		s.logger.Warn("order key mismatch", zap.Int64("order_id", orderID))
		return domain.Order{}, ErrOrderKeyMismatch
	}
	return order, nil
}

// MarkPaid flags the order as paid after a successful PSP capture.
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64, transactionID string) error {
	if orderID <= 0 {
		return ErrOrderInvalidInput
	}
	body := map[string]any{
		"set_paid": true,
	}
	if transactionID = strings.TrimSpace(transactionID); transactionID != "" {
		body["transaction_id"] = transactionID
	}
	if err := s.gateway.Put(ctx, fmt.Sprintf("orders/%d", orderID), body, nil); err != nil {
		return err
	}
	s.logger.Info("order marked paid", zap.Int64("order_id", orderID))
	return nil
}
