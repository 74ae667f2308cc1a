package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/woocommerce"
)

type fakeProxyGateway struct {
	lastMethod string
	lastPath   string
	lastQuery  url.Values
	lastBody   []byte
	payload    json.RawMessage
	err        error
}

func (f *fakeProxyGateway) Request(_ context.Context, method, path string, query url.Values, body []byte) (json.RawMessage, error) {
	f.lastMethod = method
	f.lastPath = path
	f.lastQuery = query
	f.lastBody = body
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func newProxyRouter(gateway proxyGateway, debug bool) http.Handler {
	proxy := NewProxyHandlers(gateway, []string{"products", "products/categories", "coupons"}, debug)
	r := chi.NewRouter()
	proxy.Routes(r)
	return r
}

func TestProxyForwardsVerbatim(t *testing.T) {
	gateway := &fakeProxyGateway{payload: json.RawMessage(`[{"id":1}]`)}
	router := newProxyRouter(gateway, false)

	req := httptest.NewRequest(http.MethodPost, "/woo/products/categories?per_page=5&orderby=name", strings.NewReader(`{"name":"Racks"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if gateway.lastMethod != http.MethodPost {
		t.Errorf("method = %q", gateway.lastMethod)
	}
	if gateway.lastPath != "products/categories" {
		t.Errorf("path = %q", gateway.lastPath)
	}
	if gateway.lastQuery.Get("per_page") != "5" || gateway.lastQuery.Get("orderby") != "name" {
		t.Errorf("query = %v", gateway.lastQuery)
	}
	if string(gateway.lastBody) != `{"name":"Racks"}` {
		t.Errorf("body = %s", gateway.lastBody)
	}
	if rec.Body.String() != `[{"id":1}]` {
		t.Errorf("response = %s", rec.Body.String())
	}
}

func TestProxyRejectsUnlistedPaths(t *testing.T) {
	gateway := &fakeProxyGateway{}
	router := newProxyRouter(gateway, false)

	for _, path := range []string{"/woo/system_status", "/woo/products-secret", "/woo/webhooks/1"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s status = %d, want 403", path, rec.Code)
		}
		var envelope map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if envelope["error"] != "path_not_allowed" {
			t.Errorf("error = %v", envelope["error"])
		}
	}
	if gateway.lastPath != "" {
		t.Errorf("gateway was called with %q", gateway.lastPath)
	}
}

func TestProxyHidesUpstreamErrorDetails(t *testing.T) {
	gateway := &fakeProxyGateway{err: &woocommerce.UpstreamError{
		StatusCode: http.StatusInternalServerError,
		Body:       []byte(`{"code":"internal_db_error","message":"SELECT failed"}`),
	}}
	router := newProxyRouter(gateway, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/woo/products", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "SELECT failed") {
		t.Error("upstream body leaked into response")
	}
	var envelope map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope["error"] != "upstream_error" {
		t.Errorf("error = %v", envelope["error"])
	}
}

func TestDebugProxyRelaysUpstreamVerbatim(t *testing.T) {
	gateway := &fakeProxyGateway{err: &woocommerce.UpstreamError{
		StatusCode: http.StatusTeapot,
		Body:       []byte(`{"code":"custom_upstream"}`),
	}}
	router := newProxyRouter(gateway, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/woo/system_status", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
	if rec.Body.String() != `{"code":"custom_upstream"}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestDebugProxyDisabledInProduction(t *testing.T) {
	router := newProxyRouter(&fakeProxyGateway{}, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/woo/system_status", nil))
	if rec.Code == http.StatusOK || rec.Code == http.StatusTeapot {
		t.Fatalf("debug route should not be mounted, got %d", rec.Code)
	}
}
