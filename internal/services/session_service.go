package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/strengthworks/storefront-api/internal/platform/auth"
	"github.com/strengthworks/storefront-api/internal/wordpress"
)

// ErrSessionInvalidInput indicates missing credentials.
var ErrSessionInvalidInput = errors.New("sessions: invalid input")

// wordpressBridge abstracts the WordPress client for easier testing.
type wordpressBridge interface {
	Authenticate(ctx context.Context, username, password string) (wordpress.TokenResponse, error)
	Validate(ctx context.Context, token string) (bool, error)
	Me(ctx context.Context, token string) (wordpress.Profile, error)
}

// SessionServiceDeps wires the dependencies required by the session service.
type SessionServiceDeps struct {
	WordPress wordpressBridge
	Verifier  *auth.Verifier
	Logger    *zap.Logger
	Clock     func() time.Time
}

// SessionService bridges WordPress JWT authentication into storefront sessions.
type SessionService struct {
	wordpress wordpressBridge
	verifier  *auth.Verifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs a SessionService validating required dependencies.
func NewSessionService(deps SessionServiceDeps) (*SessionService, error) {
	if deps.WordPress == nil {
		return nil, errors.New("session service: wordpress client is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("session service: token verifier is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionService{
		wordpress: deps.WordPress,
		verifier:  deps.Verifier,
		logger:    logger,
		now:       func() time.Time { return clock().UTC() },
	}, nil
}

// Login exchanges WordPress credentials for a storefront session. The user's
// profile is fetched so the session carries a stable user ID even when the
// token claims omit it.
func (s *SessionService) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrSessionInvalidInput
	}

	token, err := s.wordpress.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	session, err := s.verifier.ParseSession(token.Token)
	if err != nil {
		return nil, err
	}

	if session.UserID == "" || session.Email == "" {
		profile, err := s.wordpress.Me(ctx, token.Token)
		if err != nil {
			s.logger.Debug("profile fetch failed", zap.Error(err))
		} else {
			if session.UserID == "" && profile.ID > 0 {
				session.UserID = strconv.FormatInt(profile.ID, 10)
			}
			if session.Email == "" {
				session.Email = profile.Email
			}
			if session.DisplayName == "" {
				session.DisplayName = profile.Name
			}
		}
	}
	if session.Email == "" {
		session.Email = token.Email
	}
	if session.DisplayName == "" {
		session.DisplayName = token.DisplayName
	}
	if session.Username == "" {
		session.Username = token.Nicename
	}

	s.logger.Info("session established", zap.String("user_id", session.UserID))
	return session, nil
}

// Resolve parses and verifies a bearer token into a session. When no signing
// secret is configured the parsed token is only a hint, so the WordPress
// validation endpoint gets the final say.
func (s *SessionService) Resolve(ctx context.Context, token string) (*auth.Session, error) {
	session, err := s.verifier.ParseSession(token)
	if err != nil {
		return nil, err
	}
	if !s.verifier.VerifiesSignature() {
		valid, err := s.wordpress.Validate(ctx, session.Token)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, auth.ErrTokenInvalid
		}
	}
	return session, nil
}
