package services

import (
	"context"
	"errors"
	"testing"

	"github.com/strengthworks/storefront-api/internal/woocommerce"
)

func TestQuoteCollectsCoveredZones(t *testing.T) {
	gateway := newFakeGateway()
	gateway.responses["shipping/zones"] = `[{"id":0,"name":"Rest of the World"},{"id":1,"name":"Germany"},{"id":2,"name":"UK"}]`
	gateway.responses["shipping/zones/1/locations"] = `[{"code":"DE","type":"country"}]`
	gateway.responses["shipping/zones/2/locations"] = `[{"code":"GB","type":"country"}]`
	gateway.responses["shipping/zones/0/methods"] = `[{"instance_id":1,"method_id":"flat_rate","method_title":"Flat rate","enabled":true,"settings":{"cost":{"value":"49.00"}}}]`
	gateway.responses["shipping/zones/1/methods"] = `[
		{"instance_id":2,"method_id":"free_shipping","method_title":"Free shipping","enabled":true,"settings":{"cost":{"value":""}}},
		{"instance_id":3,"method_id":"express","method_title":"Express","enabled":false,"settings":{"cost":{"value":"9.90"}}}
	]`

	svc, err := NewShippingService(ShippingServiceDeps{Gateway: gateway, Currency: "EUR"})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	rates, err := svc.Quote(context.Background(), "de")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("rates = %+v", rates)
	}
	if rates[0].ZoneID != 0 || rates[0].MethodID != "flat_rate" || rates[0].Cost != "49.00" {
		t.Errorf("rates[0] = %+v", rates[0])
	}
	if rates[1].ZoneID != 1 || rates[1].MethodID != "free_shipping" || rates[1].Cost != "0.00" {
		t.Errorf("rates[1] = %+v", rates[1])
	}
}

func TestQuoteFailsWhenAnyZoneFails(t *testing.T) {
	gateway := newFakeGateway()
	gateway.responses["shipping/zones"] = `[{"id":0,"name":"Rest of the World"},{"id":1,"name":"Germany"}]`
	gateway.responses["shipping/zones/0/methods"] = `[]`
	gateway.errs["shipping/zones/1/locations"] = &woocommerce.UpstreamError{StatusCode: 500}

	svc, err := NewShippingService(ShippingServiceDeps{Gateway: gateway})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Quote(context.Background(), "DE"); err == nil {
		t.Fatal("expected error when a zone lookup fails")
	}
}

func TestQuoteValidatesCountry(t *testing.T) {
	svc, err := NewShippingService(ShippingServiceDeps{Gateway: newFakeGateway()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	for _, country := range []string{"", "D", "GER"} {
		if _, err := svc.Quote(context.Background(), country); !errors.Is(err, ErrShippingInvalidInput) {
			t.Errorf("Quote(%q) err = %v", country, err)
		}
	}
}
