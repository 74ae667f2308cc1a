package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSettlementCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"USD", "USD"},
		{"usd", "EUR"},
		{"EUR", "EUR"},
		{"GBP", "EUR"},
		{"", "EUR"},
	}
	for _, tc := range cases {
		if got := SettlementCurrency(tc.in); got != tc.want {
			t.Errorf("SettlementCurrency(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPayPalCreateCheckoutSession(t *testing.T) {
	var orderPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
				t.Errorf("token content-type = %q", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		case "/v2/checkout/orders":
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("authorization = %q", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&orderPayload); err != nil {
				t.Fatalf("decode order: %v", err)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "PPORDER1",
				"status": "CREATED",
				"links": []map[string]string{
					{"rel": "self", "href": "https://paypal.test/self"},
					{"rel": "approve", "href": "https://paypal.test/approve"},
				},
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	provider, err := NewPayPalProvider(PayPalConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      server.URL,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	session, err := provider.CreateCheckoutSession(context.Background(), CheckoutRequest{
		OrderID:     "42",
		OrderNumber: "SW-1042",
		Amount:      1999,
		Currency:    "gbp",
		SuccessURL:  "https://shop.test/thanks",
		CancelURL:   "https://shop.test/cart",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.RedirectURL != "https://paypal.test/approve" {
		t.Errorf("redirect = %q", session.RedirectURL)
	}
	if session.ID != "PPORDER1" {
		t.Errorf("id = %q", session.ID)
	}

	units := orderPayload["purchase_units"].([]any)
	amount := units[0].(map[string]any)["amount"].(map[string]any)
	if amount["currency_code"] != "EUR" {
		t.Errorf("currency = %v, want EUR", amount["currency_code"])
	}
	if amount["value"] != "19.99" {
		t.Errorf("value = %v, want 19.99", amount["value"])
	}
}

func TestPayPalCapturePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		case "/v2/checkout/orders/PPORDER1/capture":
			_, _ = w.Write([]byte(`{
				"id": "PPORDER1",
				"status": "COMPLETED",
				"purchase_units": [{"payments": {"captures": [{"amount": {"currency_code": "EUR", "value": "19.99"}}]}}]
			}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	provider, err := NewPayPalProvider(PayPalConfig{ClientID: "id", ClientSecret: "secret", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	details, err := provider.CapturePayment(context.Background(), CaptureRequest{SessionID: "PPORDER1"})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if details.Status != StatusSucceeded {
		t.Errorf("status = %q", details.Status)
	}
	if details.Amount != 1999 || details.Currency != "EUR" {
		t.Errorf("details = %+v", details)
	}
}

func TestManagerRoutesProviders(t *testing.T) {
	paypal, err := NewPayPalProvider(PayPalConfig{ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	manager := NewManager(paypal)

	if _, err := manager.Provider("PayPal"); err != nil {
		t.Fatalf("provider lookup: %v", err)
	}
	if _, err := manager.Provider("stripe"); err != ErrUnsupportedProvider {
		t.Fatalf("err = %v, want ErrUnsupportedProvider", err)
	}
}
