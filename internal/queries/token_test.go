package queries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer(30)

	token, expiry := issuer.Issue()
	assert.Len(t, token, 64)
	assert.NotContains(t, token, "-")
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), expiry, time.Minute)

	other, _ := issuer.Issue()
	assert.NotEqual(t, token, other)
}

func TestTokenIssuerExpired(t *testing.T) {
	issuer := NewTokenIssuer(30)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	assert.False(t, issuer.Expired(fixed.Add(time.Second)))
	assert.True(t, issuer.Expired(fixed))
	assert.True(t, issuer.Expired(fixed.Add(-time.Second)))
}
