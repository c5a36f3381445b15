// internal/server/sessions.go
package server

import (
	"context"
	"encoding/json"

	"medclaim-portal/internal/common/database"
	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/models"
)

const sessionKeyPrefix = "sessions:"

// SessionStore resolves bearer tokens to admin sessions held in Redis.
// Sessions are written by the identity service; this side only reads.
type SessionStore struct {
	rdb *database.RedisClient
}

func NewSessionStore(rdb *database.RedisClient) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Get returns the session for a bearer token. Unknown and expired tokens
// both come back as an authentication error.
func (s *SessionStore) Get(ctx context.Context, token string) (*models.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		return nil, apperrors.NewAuthenticationError("unknown session")
	}

	var session models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, apperrors.NewAuthenticationError("corrupt session")
	}
	if session.IsExpired() {
		return nil, apperrors.NewAuthenticationError("session expired")
	}
	return &session, nil
}
