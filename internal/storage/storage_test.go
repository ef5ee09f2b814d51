package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibridge-dev/aibridge/pkg/types"
)

func TestPutGetSession(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	sess := &types.Session{
		ID:     "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Tool:   "ask",
		Model:  "anthropic/claude-sonnet-4-20250514",
		Active: true,
		Time:   types.SessionTime{Created: 1000, LastActive: 2000},
	}

	require.NoError(t, store.PutSession(ctx, "ask:caller-1", sess))

	got, err := store.GetSession(ctx, "ask:caller-1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.Model, got.Model)
	assert.True(t, got.Active)
	assert.Equal(t, int64(2000), got.Time.LastActive)
}

func TestGetSession_NotFound(t *testing.T) {
	store := New(t.TempDir())

	_, err := store.GetSession(context.Background(), "ask:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSession(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.PutSession(ctx, "ask:c1", &types.Session{ID: "s1"}))
	require.NoError(t, store.DeleteSession(ctx, "ask:c1"))

	_, err := store.GetSession(ctx, "ask:c1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.DeleteSession(ctx, "ask:c1"))
}

func TestListSessions(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	require.NoError(t, store.PutSession(ctx, "ask:a", &types.Session{ID: "s1"}))
	require.NoError(t, store.PutSession(ctx, "ask:b", &types.Session{ID: "s2"}))

	sessions, err = store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestPutSession_OverwritesExisting(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.PutSession(ctx, "ask:c1", &types.Session{ID: "s1", Active: true}))
	require.NoError(t, store.PutSession(ctx, "ask:c1", &types.Session{ID: "s1", Active: false}))

	got, err := store.GetSession(ctx, "ask:c1")
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "ask-caller-1", sanitizeKey("ask:caller/1"))
	assert.Equal(t, "plain_key-1.2", sanitizeKey("plain_key-1.2"))
}
