package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/payments"
	"github.com/strengthworks/storefront-api/internal/services"
)

type fakeCheckoutDriver struct {
	lastCmd services.StartPaymentCommand
	session payments.CheckoutSession
	details payments.PaymentDetails
	err     error
}

func (f *fakeCheckoutDriver) StartPayment(_ context.Context, cmd services.StartPaymentCommand) (payments.CheckoutSession, error) {
	f.lastCmd = cmd
	return f.session, f.err
}

func (f *fakeCheckoutDriver) CompletePayment(context.Context, string, int64, string, string) (payments.PaymentDetails, error) {
	return f.details, f.err
}

func newCheckoutRouter(driver checkoutDriver) http.Handler {
	r := chi.NewRouter()
	r.Route("/checkout", NewCheckoutHandlers(driver).Routes)
	return r
}

func TestCheckoutStartStripe(t *testing.T) {
	driver := &fakeCheckoutDriver{
		session: payments.CheckoutSession{ID: "cs_1", Provider: "stripe", RedirectURL: "https://psp.test/pay"},
	}
	router := newCheckoutRouter(driver)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/stripe", strings.NewReader(`{"order_id":42,"order_key":"wc_order_abc"}`))
	req.Header.Set("Idempotency-Key", "idem-1")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if driver.lastCmd.Provider != "stripe" || driver.lastCmd.OrderID != 42 {
		t.Errorf("cmd = %+v", driver.lastCmd)
	}
	if driver.lastCmd.IdempotencyKey != "idem-1" {
		t.Errorf("idempotency key = %q", driver.lastCmd.IdempotencyKey)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["redirect_url"] != "https://psp.test/pay" {
		t.Errorf("resp = %v", resp)
	}
}

func TestCheckoutStartRequiresOrderReference(t *testing.T) {
	router := newCheckoutRouter(&fakeCheckoutDriver{})

	for _, body := range []string{`{}`, `{"order_id":42}`, `{"order_key":"k"}`} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/paypal", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestCheckoutStartMapsKeyMismatchTo403(t *testing.T) {
	router := newCheckoutRouter(&fakeCheckoutDriver{err: services.ErrOrderKeyMismatch})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/stripe", strings.NewReader(`{"order_id":42,"order_key":"bad"}`)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestCheckoutCapturePayPal(t *testing.T) {
	router := newCheckoutRouter(&fakeCheckoutDriver{
		details: payments.PaymentDetails{Provider: "paypal", SessionID: "PP1", Status: payments.StatusSucceeded, Amount: 1999, Currency: "EUR"},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/paypal/capture", strings.NewReader(`{"order_id":42,"order_key":"k","session_id":"PP1"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "succeeded" || resp["currency"] != "EUR" {
		t.Errorf("resp = %v", resp)
	}
}
