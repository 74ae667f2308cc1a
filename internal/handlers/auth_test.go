package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"

	"github.com/strengthworks/storefront-api/internal/platform/auth"
)

type fakeEmailChecker struct {
	ids map[string]int64
}

func (f *fakeEmailChecker) EmailExists(_ context.Context, email string) (int64, bool) {
	id, ok := f.ids[email]
	return id, ok
}

type fakeSessionBridge struct {
	session    *auth.Session
	err        error
	resolveErr error
}

func (f *fakeSessionBridge) Login(context.Context, string, string) (*auth.Session, error) {
	return f.session, f.err
}

func (f *fakeSessionBridge) Resolve(_ context.Context, token string) (*auth.Session, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &auth.Session{Token: token}, nil
}

func newAuthRouter(customers emailChecker, sessions sessionBridge) http.Handler {
	h := NewAuthHandlers(customers, sessions, auth.NewVerifier())
	r := chi.NewRouter()
	r.Route("/auth", h.Routes)
	return r
}

func TestCheckEmailReportsExistence(t *testing.T) {
	router := newAuthRouter(&fakeEmailChecker{ids: map[string]int64{"coach@example.com": 7}}, &fakeSessionBridge{})

	cases := []struct {
		body       string
		wantExists bool
		wantUserID int64
	}{
		{`{"email":"coach@example.com"}`, true, 7},
		{`{"email":"new@example.com"}`, false, 0},
		{`{}`, false, 0},
		{`not json`, false, 0},
		{``, false, 0},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/check-email", strings.NewReader(tc.body))
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("body %q: status = %d, want 200", tc.body, rec.Code)
		}
		var resp struct {
			Exists bool   `json:"exists"`
			UserID *int64 `json:"userId"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Exists != tc.wantExists {
			t.Errorf("body %q: exists = %v, want %v", tc.body, resp.Exists, tc.wantExists)
		}
		if tc.wantExists {
			if resp.UserID == nil || *resp.UserID != tc.wantUserID {
				t.Errorf("body %q: userId = %v, want %d", tc.body, resp.UserID, tc.wantUserID)
			}
		} else if resp.UserID != nil {
			t.Errorf("body %q: userId = %d, want null", tc.body, *resp.UserID)
		}
	}
}

func TestLoginReturnsSession(t *testing.T) {
	router := newAuthRouter(&fakeEmailChecker{}, &fakeSessionBridge{
		session: &auth.Session{Token: "jwt", UserID: "7", Email: "coach@example.com"},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/wordpress", strings.NewReader(`{"username":"coach","password":"pw"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var session auth.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.UserID != "7" || session.Token != "jwt" {
		t.Fatalf("session = %+v", session)
	}
}

func TestLoginValidatesBody(t *testing.T) {
	router := newAuthRouter(&fakeEmailChecker{}, &fakeSessionBridge{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/wordpress", strings.NewReader(`{"username":"","password":""}`))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSessionEndpointResolvesThroughService(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":  time.Now().Add(time.Hour).Unix(),
		"data": map[string]any{"user": map[string]any{"id": "7"}},
	})
	signed, err := token.SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	router := newAuthRouter(&fakeEmailChecker{}, &fakeSessionBridge{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var session auth.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.Token != signed {
		t.Fatal("expected the resolved session back")
	}

	router = newAuthRouter(&fakeEmailChecker{}, &fakeSessionBridge{resolveErr: auth.ErrTokenInvalid})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 when resolution fails", rec.Code)
	}
}
