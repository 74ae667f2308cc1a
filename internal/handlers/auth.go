package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/platform/auth"
	"github.com/strengthworks/storefront-api/internal/platform/httpx"
	"github.com/strengthworks/storefront-api/internal/wordpress"
)

// emailChecker abstracts the customer service for the existence probe.
type emailChecker interface {
	EmailExists(ctx context.Context, email string) (int64, bool)
}

// sessionBridge abstracts the session service.
type sessionBridge interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Resolve(ctx context.Context, token string) (*auth.Session, error)
}

// AuthHandlers exposes the signup email probe and the WordPress session bridge.
type AuthHandlers struct {
	customers emailChecker
	sessions  sessionBridge
	verifier  *auth.Verifier
}

// NewAuthHandlers constructs the auth endpoints.
func NewAuthHandlers(customers emailChecker, sessions sessionBridge, verifier *auth.Verifier) *AuthHandlers {
	return &AuthHandlers{customers: customers, sessions: sessions, verifier: verifier}
}

// Routes wires the /auth endpoints onto the provided router.
func (h *AuthHandlers) Routes(r chi.Router) {
	r.Post("/check-email", h.checkEmail)
	r.Post("/wordpress", h.login)
	if h.verifier != nil {
		r.With(h.verifier.RequireSession()).Get("/session", h.session)
	}
}

// checkEmail reports whether an account exists for the address. The answer is
// {"exists": false} for malformed input and upstream failures alike, so the
// endpoint cannot be used to detect backend trouble. userId is set only when
// a matching account was found.
func (h *AuthHandlers) checkEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email string `json:"email"`
	}
	var resp struct {
		Exists bool   `json:"exists"`
		UserID *int64 `json:"userId"`
	}
	if body, err := readLimitedBody(r, defaultMaxBodySize); err == nil {
		if err := json.Unmarshal(body, &req); err == nil {
			if userID, exists := h.customers.EmailExists(ctx, req.Email); exists {
				resp.Exists = true
				resp.UserID = &userID
			}
		}
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, defaultMaxBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed json body", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "username and password are required", http.StatusBadRequest))
		return
	}

	session, err := h.sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, wordpress.ErrInvalidCredentials) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "username or password is incorrect", http.StatusUnauthorized))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("login_failed", "unable to establish a session", http.StatusBadGateway))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, session)
}

// session echoes the caller's session. Resolution goes through the session
// service so tokens the verifier could only parse, not verify, still get
// checked against the backend.
func (h *AuthHandlers) session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	resolved, err := h.sessions.Resolve(ctx, session.Token)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resolved)
}
