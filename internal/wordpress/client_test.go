package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthenticateReturnsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/jwt-auth/v1/token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if creds["username"] != "coach" {
			t.Errorf("username = %q", creds["username"])
		}
		_ = json.NewEncoder(w).Encode(TokenResponse{
			Token:       "jwt-token",
			Email:       "coach@example.com",
			DisplayName: "Coach",
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	token, err := client.Authenticate(context.Background(), "coach", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if token.Token != "jwt-token" || token.Email != "coach@example.com" {
		t.Fatalf("token = %+v", token)
	}
}

func TestAuthenticateMapsRejectionToInvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"[jwt_auth] incorrect_password"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.Authenticate(context.Background(), "coach", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestMeSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer jwt-token" {
			t.Errorf("authorization = %q", got)
		}
		if r.URL.Query().Get("context") != "edit" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(Profile{ID: 7, Name: "Coach", Email: "coach@example.com"})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	profile, err := client.Me(context.Background(), "jwt-token")
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if profile.ID != 7 || profile.Email != "coach@example.com" {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestValidateReportsTokenStatus(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer jwt-token" {
			t.Errorf("authorization = %q", got)
		}
		if !strings.HasSuffix(r.URL.Path, "jwt-auth/v1/token/validate") {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(status)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	valid, err := client.Validate(context.Background(), "jwt-token")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !valid {
		t.Fatal("expected valid token")
	}

	status = http.StatusForbidden
	valid, err = client.Validate(context.Background(), "jwt-token")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if valid {
		t.Fatal("expected rejected token")
	}
}
