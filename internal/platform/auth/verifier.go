package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrTokenExpired signals that the provided WordPress JWT has expired.
	ErrTokenExpired = errors.New("auth: wordpress token expired")
	// ErrTokenInvalid signals that the provided WordPress JWT is malformed or fails verification.
	ErrTokenInvalid = errors.New("auth: wordpress token invalid")
)

// wordpressClaims mirrors the payload issued by the WordPress JWT token endpoint.
// The user id lives under data.user.id; standard registered claims carry expiry.
type wordpressClaims struct {
	jwt.RegisteredClaims
	Data struct {
		User struct {
			ID any `json:"id"`
		} `json:"user"`
	} `json:"data"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Verifier inspects WordPress JWTs presented as bearer tokens.
//
// When a signing secret is configured the HS256 signature is verified. Without
// one, tokens are only parsed: presence, well-formedness, and an unexpired exp
// claim gate access, and the backend remains the authority on every forwarded
// call.
type Verifier struct {
	secret []byte
	leeway time.Duration
	clock  func() time.Time
}

// VerifierOption customises Verifier behaviour.
type VerifierOption func(*Verifier)

// WithSigningSecret enables HS256 signature verification using the WordPress JWT secret.
func WithSigningSecret(secret string) VerifierOption {
	return func(v *Verifier) {
		secret = strings.TrimSpace(secret)
		if secret != "" {
			v.secret = []byte(secret)
		}
	}
}

// WithLeeway tolerates small clock drift when checking expiry.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		if d > 0 {
			v.leeway = d
		}
	}
}

// WithClock overrides the time source, primarily for testing.
func WithClock(clock func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// NewVerifier constructs a Verifier for middleware composition.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// VerifiesSignature reports whether a signing secret is configured. Without
// one, callers should treat parsed sessions as unauthenticated hints and
// defer to the backend for the final answer.
func (v *Verifier) VerifiesSignature() bool {
	return len(v.secret) > 0
}

// ParseSession turns a raw bearer token into a Session.
func (v *Verifier) ParseSession(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims := &wordpressClaims{}
	var err error
	if len(v.secret) > 0 {
		// Parsing skips claims validation; expiry is checked below so the
		// configured leeway applies to both parse paths.
		_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return v.secret, nil
		}, jwt.WithoutClaimsValidation())
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	session := &Session{
		Token:    token,
		UserID:   claimUserID(claims),
		Email:    strings.TrimSpace(claims.Email),
		Username: strings.TrimSpace(claims.Username),
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
		if session.Expired(v.clock().Add(-v.leeway)) {
			return nil, ErrTokenExpired
		}
	}
	return session, nil
}

func claimUserID(claims *wordpressClaims) string {
	switch id := claims.Data.User.ID.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	}
	return strings.TrimSpace(claims.Subject)
}
