package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/cart"
)

func newCartRouter() (http.Handler, *cart.Store) {
	store := cart.NewStore(
		cart.WithDefaultCurrency("EUR"),
		cart.WithFreebies(map[int64]cart.FreebieProduct{
			118: {ProductID: 900, Name: "Resistance Band"},
		}),
	)
	r := chi.NewRouter()
	r.Route("/cart", NewCartHandlers(store).Routes)
	return r, store
}

func TestCartLifecycle(t *testing.T) {
	router, _ := newCartRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created cartView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Currency != "EUR" {
		t.Fatalf("created = %+v", created)
	}

	rec = httptest.NewRecorder()
	body := `{"product_id":118,"name":"Power Rack","quantity":1,"unit_price":79900}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/"+created.ID+"/items", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated cartView
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(updated.Lines) != 2 {
		t.Fatalf("lines = %+v, want qualifier plus freebie", updated.Lines)
	}
	if updated.Total != 79900 {
		t.Errorf("total = %d", updated.Total)
	}
	if updated.FormattedTotal == "" {
		t.Error("formatted total missing")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cart/"+created.ID+"/items/freebie-118", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("freebie delete status = %d, want 409", rec.Code)
	}
}

func TestCartNotFound(t *testing.T) {
	router, _ := newCartRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart/does-not-exist", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCartSetCurrency(t *testing.T) {
	router, store := newCartRouter()
	created := store.Create()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/cart/%s/currency", created.ID), strings.NewReader(`{"currency":"usd"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var view cartView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Currency != "USD" {
		t.Errorf("currency = %q", view.Currency)
	}
}
