package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/strengthworks/storefront-api/internal/woocommerce"
)

// fakeGateway serves canned JSON per path and records writes.
type fakeGateway struct {
	responses map[string]string
	errs      map[string]error
	gets      []string
	puts      map[string]any
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		responses: make(map[string]string),
		errs:      make(map[string]error),
		puts:      make(map[string]any),
	}
}

func (f *fakeGateway) Request(_ context.Context, _, path string, _ url.Values, _ []byte) (json.RawMessage, error) {
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	return json.RawMessage(f.responses[path]), nil
}

func (f *fakeGateway) Get(_ context.Context, path string, _ url.Values, out any) error {
	f.gets = append(f.gets, path)
	if err := f.errs[path]; err != nil {
		return err
	}
	payload, ok := f.responses[path]
	if !ok {
		return &woocommerce.UpstreamError{StatusCode: 404, Body: []byte(`{"code":"not_found"}`)}
	}
	return json.Unmarshal([]byte(payload), out)
}

func (f *fakeGateway) Post(_ context.Context, path string, body any, _ any) error {
	f.puts[path] = body
	return f.errs[path]
}

func (f *fakeGateway) Put(_ context.Context, path string, body any, out any) error {
	f.puts[path] = body
	if err := f.errs[path]; err != nil {
		return err
	}
	if payload, ok := f.responses[path]; ok && out != nil {
		return json.Unmarshal([]byte(payload), out)
	}
	return nil
}

func TestOrderServiceGetVerifiesKey(t *testing.T) {
	gateway := newFakeGateway()
	gateway.responses["orders/42"] = `{"id":42,"order_key":"wc_order_abc","total":"19.99","currency":"EUR"}`

	svc, err := NewOrderService(OrderServiceDeps{Gateway: gateway})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	order, err := svc.Get(context.Background(), 42, "wc_order_abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if order.ID != 42 {
		t.Fatalf("order = %+v", order)
	}

	if _, err := svc.Get(context.Background(), 42, "wc_order_wrong"); !errors.Is(err, ErrOrderKeyMismatch) {
		t.Fatalf("err = %v, want ErrOrderKeyMismatch", err)
	}
}

func TestOrderServiceGetValidatesInput(t *testing.T) {
	svc, err := NewOrderService(OrderServiceDeps{Gateway: newFakeGateway()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Get(context.Background(), 0, "key"); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.Get(context.Background(), 42, "  "); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestOrderServicePropagatesUpstreamError(t *testing.T) {
	gateway := newFakeGateway()
	gateway.errs["orders/42"] = &woocommerce.UpstreamError{StatusCode: 500, Body: []byte(`boom`)}

	svc, err := NewOrderService(OrderServiceDeps{Gateway: gateway})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_, err = svc.Get(context.Background(), 42, "key")
	if _, ok := woocommerce.AsUpstream(err); !ok {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
}

func TestOrderServiceMarkPaid(t *testing.T) {
	gateway := newFakeGateway()
	svc, err := NewOrderService(OrderServiceDeps{Gateway: gateway})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.MarkPaid(context.Background(), 42, "txn_1"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	body, ok := gateway.puts["orders/42"].(map[string]any)
	if !ok {
		t.Fatalf("no put recorded: %v", gateway.puts)
	}
	if body["set_paid"] != true || body["transaction_id"] != "txn_1" {
		t.Fatalf("body = %v", body)
	}
}
