package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medclaim-portal/internal/common/database"
	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/models"
)

func newMockSessionStore(t *testing.T) (*SessionStore, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	t.Cleanup(func() { _ = db.Close() })

	return NewSessionStore(&database.RedisClient{Client: db}), mock
}

func TestSessionStoreGet(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockSessionStore(t)

	session := models.Session{
		ID:        "sess-1",
		User:      models.AdminUser{ID: "admin-1", Name: "R. Verma", Role: "obc_cell"},
		Token:     "tok-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	raw, err := json.Marshal(session)
	require.NoError(t, err)

	mock.ExpectGet(sessionKeyPrefix + "tok-1").SetVal(string(raw))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", got.User.ID)
	assert.Equal(t, "obc_cell", got.User.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStoreUnknownToken(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockSessionStore(t)

	mock.ExpectGet(sessionKeyPrefix + "nope").RedisNil()

	_, err := store.Get(ctx, "nope")
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeAuthenticationFailed, stdErr.Code)
}

func TestSessionStoreExpiredSession(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockSessionStore(t)

	session := models.Session{
		User:      models.AdminUser{ID: "admin-1", Role: "obc_cell"},
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	raw, err := json.Marshal(session)
	require.NoError(t, err)

	mock.ExpectGet(sessionKeyPrefix + "stale").SetVal(string(raw))

	_, err = store.Get(ctx, "stale")
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeAuthenticationFailed, stdErr.Code)
}

func TestSessionStoreCorruptPayload(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockSessionStore(t)

	mock.ExpectGet(sessionKeyPrefix + "junk").SetVal("not-json")

	_, err := store.Get(ctx, "junk")
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeAuthenticationFailed, stdErr.Code)
}
