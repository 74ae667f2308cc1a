package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/strengthworks/storefront-api/internal/domain"
	"github.com/strengthworks/storefront-api/internal/platform/observability"
)

// ErrCustomerInvalidInput indicates missing or malformed customer data.
var ErrCustomerInvalidInput = errors.New("customers: invalid input")

// CustomerServiceDeps wires the dependencies required by the customer service.
type CustomerServiceDeps struct {
	Gateway commerceGateway
	Logger  *zap.Logger
}

// CustomerService covers the account-facing customer operations: the email
// existence probe used by the signup form and address management.
type CustomerService struct {
	gateway commerceGateway
	logger  *zap.Logger
}

// NewCustomerService constructs a CustomerService validating required dependencies.
func NewCustomerService(deps CustomerServiceDeps) (*CustomerService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("customer service: commerce gateway is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{gateway: deps.Gateway, logger: logger}, nil
}

// EmailExists reports whether a customer account uses the given address and
// returns the matching customer id. The check degrades to not-found on
// malformed input and on upstream failures, so the signup form never blocks
// on a flaky store.
func (s *CustomerService) EmailExists(ctx context.Context, email string) (int64, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return 0, false
	}

	var customers []domain.Customer
	query := url.Values{"email": {email}, "per_page": {"1"}}
	if err := s.gateway.Get(ctx, "customers", query, &customers); err != nil {
		s.logger.Debug("email lookup failed",
			zap.String("email", observability.SanitizeEmail(email)),
			zap.Error(err))
		return 0, false
	}
	if len(customers) == 0 {
		return 0, false
	}
	return customers[0].ID, true
}

// Addresses returns the customer's stored billing and shipping addresses.
func (s *CustomerService) Addresses(ctx context.Context, customerID int64) (domain.Address, domain.Address, error) {
	if customerID <= 0 {
		return domain.Address{}, domain.Address{}, ErrCustomerInvalidInput
	}
	var customer domain.Customer
	if err := s.gateway.Get(ctx, fmt.Sprintf("customers/%d", customerID), nil, &customer); err != nil {
		return domain.Address{}, domain.Address{}, err
	}
	return customer.Billing, customer.Shipping, nil
}

// UpdateAddresses replaces the customer's billing and shipping addresses in
// one write. Nil arguments leave the respective address untouched.
func (s *CustomerService) UpdateAddresses(ctx context.Context, customerID int64, billing, shipping *domain.Address) (domain.Customer, error) {
	if customerID <= 0 {
		return domain.Customer{}, ErrCustomerInvalidInput
	}
	if billing == nil && shipping == nil {
		return domain.Customer{}, ErrCustomerInvalidInput
	}

	body := make(map[string]any, 2)
	if billing != nil {
		body["billing"] = billing
	}
	if shipping != nil {
		body["shipping"] = shipping
	}

	var customer domain.Customer
	if err := s.gateway.Put(ctx, fmt.Sprintf("customers/%d", customerID), body, &customer); err != nil {
		return domain.Customer{}, err
	}
	s.logger.Info("customer addresses updated", zap.Int64("customer_id", customerID))
	return customer, nil
}
