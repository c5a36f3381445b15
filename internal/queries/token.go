// internal/queries/token.go
package queries

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenIssuer mints the opaque access tokens that grant unauthenticated
// access to exactly one query thread.
type TokenIssuer struct {
	validity time.Duration
	now      func() time.Time
}

func NewTokenIssuer(validityDays int) *TokenIssuer {
	return &TokenIssuer{
		validity: time.Duration(validityDays) * 24 * time.Hour,
		now:      time.Now,
	}
}

// Issue returns a fresh opaque token and its expiry.
func (t *TokenIssuer) Issue() (string, time.Time) {
	// Two UUIDs without dashes: opaque, unguessable, URL-safe.
	token := strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
	return token, t.now().UTC().Add(t.validity)
}

// Expired reports whether a token expiry has lapsed.
func (t *TokenIssuer) Expired(expiresAt time.Time) bool {
	return !t.now().Before(expiresAt)
}
