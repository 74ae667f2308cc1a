package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL is how long completed records are retained before they may be reused.
const DefaultTTL = 24 * time.Hour

// State describes the outcome of reserving an idempotency key.
type State int

const (
	// StateNew means the key was not reserved before and the caller should proceed.
	StateNew State = iota
	// StateReplay means a stored response exists and should be written back as-is.
	StateReplay
	// StateInFlight means another request holds the key and has not finished yet.
	StateInFlight
)

// Record is the persisted outcome for a processed idempotency key.
type Record struct {
	Key         string
	Fingerprint string
	Completed   bool
	Status      int
	Headers     map[string][]string
	Body        []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

// Reservation carries the reservation state plus the stored record when replaying.
type Reservation struct {
	State  State
	Record Record
}

// Response is the captured handler output stored for replay.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Store persists reservations and completed responses keyed by idempotency key.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key, fingerprint string) error
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// ErrFingerprintMismatch signals that a key was reused with a different request payload.
var ErrFingerprintMismatch = errors.New("idempotency: key reused with different request")

func recordID(key string) string {
	return hashHex([]byte(strings.TrimSpace(key)))
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func storableHeaders(header http.Header) map[string][]string {
	if len(header) == 0 {
		return nil
	}
	out := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		if hopByHopHeader(canonical) {
			continue
		}
		copied := make([]string, len(values))
		copy(copied, values)
		out[canonical] = copied
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func hopByHopHeader(name string) bool {
	switch strings.ToLower(name) {
	case "content-length", "date", "connection", "keep-alive", "transfer-encoding", "upgrade", "te", "trailers":
		return true
	default:
		return false
	}
}

func headersToHTTP(values map[string][]string) http.Header {
	header := make(http.Header, len(values))
	for name, vals := range values {
		copied := make([]string, len(vals))
		copy(copied, vals)
		header[name] = copied
	}
	return header
}
