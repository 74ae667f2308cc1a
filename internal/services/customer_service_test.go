package services

import (
	"context"
	"testing"

	"github.com/strengthworks/storefront-api/internal/domain"
	"github.com/strengthworks/storefront-api/internal/woocommerce"
)

func TestEmailExists(t *testing.T) {
	gateway := newFakeGateway()
	gateway.responses["customers"] = `[{"id":7,"email":"coach@example.com"}]`

	svc, err := NewCustomerService(CustomerServiceDeps{Gateway: gateway})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	userID, exists := svc.EmailExists(context.Background(), "coach@example.com")
	if !exists {
		t.Fatal("expected true")
	}
	if userID != 7 {
		t.Errorf("userID = %d, want 7", userID)
	}
}

func TestEmailExistsFalseOnEmptyResult(t *testing.T) {
	gateway := newFakeGateway()
	gateway.responses["customers"] = `[]`

	svc, err := NewCustomerService(CustomerServiceDeps{Gateway: gateway})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, exists := svc.EmailExists(context.Background(), "new@example.com"); exists {
		t.Fatal("expected false")
	}
}

func TestEmailExistsFalseOnUpstreamError(t *testing.T) {
	gateway := newFakeGateway()
	gateway.errs["customers"] = &woocommerce.UpstreamError{StatusCode: 500}

	svc, err := NewCustomerService(CustomerServiceDeps{Gateway: gateway})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, exists := svc.EmailExists(context.Background(), "coach@example.com"); exists {
		t.Fatal("expected false on upstream failure")
	}
}

func TestEmailExistsFalseOnMalformedInput(t *testing.T) {
	svc, err := NewCustomerService(CustomerServiceDeps{Gateway: newFakeGateway()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	for _, email := range []string{"", "  ", "not-an-email"} {
		if _, exists := svc.EmailExists(context.Background(), email); exists {
			t.Errorf("EmailExists(%q) = true", email)
		}
	}
}

func TestUpdateAddressesReplacesBoth(t *testing.T) {
	gateway := newFakeGateway()
	gateway.responses["customers/7"] = `{"id":7,"billing":{"city":"Berlin"},"shipping":{"city":"Hamburg"}}`

	svc, err := NewCustomerService(CustomerServiceDeps{Gateway: gateway})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	billing := &domain.Address{City: "Berlin", Country: "DE"}
	shipping := &domain.Address{City: "Hamburg", Country: "DE"}
	customer, err := svc.UpdateAddresses(context.Background(), 7, billing, shipping)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if customer.Billing.City != "Berlin" || customer.Shipping.City != "Hamburg" {
		t.Fatalf("customer = %+v", customer)
	}

	body := gateway.puts["customers/7"].(map[string]any)
	if body["billing"] != billing || body["shipping"] != shipping {
		t.Fatalf("body = %v", body)
	}
}

func TestUpdateAddressesRequiresPayload(t *testing.T) {
	svc, err := NewCustomerService(CustomerServiceDeps{Gateway: newFakeGateway()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.UpdateAddresses(context.Background(), 7, nil, nil); err != ErrCustomerInvalidInput {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.UpdateAddresses(context.Background(), 0, &domain.Address{}, nil); err != ErrCustomerInvalidInput {
		t.Fatalf("err = %v", err)
	}
}
