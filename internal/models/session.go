// internal/models/session.go
package models

import "time"

// Session is an admin login session held in Redis, keyed by bearer token.
// Token issuance lives in the identity service; this service only validates.
type Session struct {
	ID           string    `json:"id"`
	User         AdminUser `json:"user"`
	Token        string    `json:"token"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// IsExpired checks if session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
