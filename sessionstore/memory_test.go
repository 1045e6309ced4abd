package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-userbase"
)

func testSession(id string) userbase.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return userbase.Session{
		ID:             id,
		IdentityID:     "identity-1",
		Role:           "member",
		ImpersonatorID: "admin-1",
		IssuedAt:       now,
		ExpiresAt:      now.Add(time.Hour),
		Token:          "signed",
	}
}

func TestMemorySaveGetDelete(t *testing.T) {
	store := NewMemory(0)
	ctx := context.Background()

	missing, err := store.GetSession(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	session := testSession("s-1")
	require.NoError(t, store.SaveSession(ctx, session, time.Hour))
	assert.Equal(t, 1, store.Len())

	loaded, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "identity-1", loaded.IdentityID)
	assert.True(t, loaded.IsImpersonation())

	require.NoError(t, store.DeleteSession(ctx, "s-1"))
	loaded, err = store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryExpires(t *testing.T) {
	store := NewMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, testSession("s-1"), 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	loaded, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryRejectsMissingID(t *testing.T) {
	store := NewMemory(0)
	err := store.SaveSession(context.Background(), userbase.Session{}, time.Hour)
	assert.ErrorIs(t, err, userbase.ErrSessionMalformed)
}

func TestMemoryNonPositiveTTLDeletes(t *testing.T) {
	store := NewMemory(0)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, testSession("s-1"), time.Hour))
	require.NoError(t, store.SaveSession(ctx, testSession("s-1"), 0))

	loaded, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryBacksCoordinator(t *testing.T) {
	cfg, err := userbase.LoadSettingsFrom(map[string]string{
		"USERBASE_SIGNING_KEY": "test-signing-key",
	})
	require.NoError(t, err)

	store := NewMemory(0)
	sessions := userbase.NewSessionCoordinator(cfg, store)
	ctx := context.Background()

	identity := userbase.NewIdentity("identity-1", "Ada", "ada@example.com", true, "member")
	session, err := sessions.Establish(ctx, identity, userbase.EstablishOptions{})
	require.NoError(t, err)

	resolved, err := sessions.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, resolved.ID)

	require.NoError(t, sessions.Revoke(ctx, session.ID))
	_, err = sessions.Resolve(ctx, session.Token)
	assert.ErrorIs(t, err, userbase.ErrSessionNotFound)
}
