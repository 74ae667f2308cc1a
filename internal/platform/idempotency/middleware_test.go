package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestMiddlewareReplaysStoredResponse(t *testing.T) {
	store := NewMemoryStore()
	var calls int32
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order":42}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newCheckoutRequest(t, "key-1", `{"order_id":"42"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request status = %d, want %d", first.Code, http.StatusCreated)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newCheckoutRequest(t, "key-1", `{"order_id":"42"}`))
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status = %d, want %d", second.Code, http.StatusCreated)
	}
	if got := second.Header().Get("X-Idempotent-Replay"); got != "true" {
		t.Fatalf("replay header = %q, want %q", got, "true")
	}
	if second.Body.String() != `{"order":42}` {
		t.Fatalf("replay body = %q", second.Body.String())
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("handler invoked %d times, want 1", got)
	}
}

func TestMiddlewareRejectsReusedKeyWithDifferentBody(t *testing.T) {
	store := NewMemoryStore()
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newCheckoutRequest(t, "key-2", `{"order_id":"1"}`))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newCheckoutRequest(t, "key-2", `{"order_id":"2"}`))
	if second.Code != http.StatusConflict {
		t.Fatalf("conflicting request status = %d, want %d", second.Code, http.StatusConflict)
	}
}

func TestMiddlewareRequiresKeyForMutations(t *testing.T) {
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/stripe", strings.NewReader("{}"))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestMiddlewareIgnoresReads(t *testing.T) {
	var calls int32
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/42", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("handler invoked %d times, want 2", got)
	}
}

func TestMemoryStoreCleanupExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	if _, err := store.Reserve(context.Background(), "expired", "fp", now.Add(-48*time.Hour), time.Hour); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := store.Reserve(context.Background(), "fresh", "fp", now, time.Hour); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	removed, err := store.CleanupExpired(context.Background(), now, 0)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

func newCheckoutRequest(t *testing.T, key, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/checkout/stripe", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", key)
	req.Header.Set("Content-Type", "application/json")
	return req
}
