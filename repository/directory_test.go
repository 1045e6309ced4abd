package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-userbase"
	"github.com/goliatone/go-userbase/activitymap"

	_ "github.com/mattn/go-sqlite3"
)

const testScheme userbase.SchemeID = "userpass"

func setupManager(t *testing.T, opts ...DirectoryOption) *Manager {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	m := NewManager(bunDB, opts...)
	require.NoError(t, m.CreateSchema(context.Background()))
	m.MustValidate()
	return m
}

func createIdentity(t *testing.T, d *Directory, name, email, handle string) userbase.Identity {
	t.Helper()

	identity, err := d.CreateIdentity(context.Background(), userbase.NewIdentityRecord{
		Name:       name,
		Email:      email,
		Scheme:     testScheme,
		Handle:     handle,
		SecretHash: "hash-" + handle,
	})
	require.NoError(t, err)
	return identity
}

func TestDirectoryCreateAndGetIdentity(t *testing.T) {
	m := setupManager(t)
	d := m.Directory()
	ctx := context.Background()

	identity := createIdentity(t, d, "Ada Lovelace", "ada@example.com", "ada")
	require.NotEmpty(t, identity.ID())
	assert.Equal(t, "Ada Lovelace", identity.Name())
	assert.Equal(t, "ada@example.com", identity.Email())
	assert.False(t, identity.EmailVerified())
	assert.Equal(t, string(userbase.RoleMember), identity.Role())

	loaded, err := d.GetIdentity(ctx, identity.ID())
	require.NoError(t, err)
	assert.Equal(t, identity.ID(), loaded.ID())
	assert.Equal(t, "ada@example.com", loaded.Email())

	cred, err := d.GetCredential(ctx, testScheme, identity.ID())
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "ada", cred.Handle)
	assert.Equal(t, "hash-ada", cred.SecretHash)
	assert.False(t, cred.RequiresReset)

	_, err = d.GetIdentity(ctx, "00000000-0000-0000-0000-000000000001")
	assert.ErrorIs(t, err, userbase.ErrIdentityNotFound)

	_, err = d.GetIdentity(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, userbase.ErrIdentityNotFound)
}

func TestDirectoryCreateIdentityDuplicates(t *testing.T) {
	m := setupManager(t)
	d := m.Directory()
	ctx := context.Background()

	createIdentity(t, d, "Ada", "ada@example.com", "ada")

	_, err := d.CreateIdentity(ctx, userbase.NewIdentityRecord{
		Name:       "Other",
		Email:      "ada@example.com",
		Scheme:     testScheme,
		Handle:     "other",
		SecretHash: "x",
	})
	require.Error(t, err)
	assert.True(t, userbase.IsDuplicate(err))
	assert.Equal(t, userbase.DuplicateFieldEmail, userbase.DuplicateField(err))

	_, err = d.CreateIdentity(ctx, userbase.NewIdentityRecord{
		Name:       "Other",
		Email:      "other@example.com",
		Scheme:     testScheme,
		Handle:     "ada",
		SecretHash: "x",
	})
	require.Error(t, err)
	assert.True(t, userbase.IsDuplicate(err))
	assert.Equal(t, userbase.DuplicateFieldHandle, userbase.DuplicateField(err))

	matches, err := d.FindByEmailOrHandle(ctx, "other@example.com")
	require.NoError(t, err)
	assert.Empty(t, matches, "failed credential insert must roll back the identity")
}

func TestDirectoryEmailUniqueIgnoresCase(t *testing.T) {
	m := setupManager(t)
	d := m.Directory()
	ctx := context.Background()

	createIdentity(t, d, "Ada", "ada@example.com", "ada")

	_, err := d.CreateIdentity(ctx, userbase.NewIdentityRecord{
		Name:       "Shouting Ada",
		Email:      "ADA@example.com",
		Scheme:     testScheme,
		Handle:     "ada2",
		SecretHash: "x",
	})
	require.Error(t, err)
	assert.True(t, userbase.IsDuplicate(err))
	assert.Equal(t, userbase.DuplicateFieldEmail, userbase.DuplicateField(err))

	bob := createIdentity(t, d, "Bob", "bob@example.com", "bob")
	email := "Ada@Example.com"
	_, err = d.UpdateProfile(ctx, bob.ID(), userbase.ProfileUpdate{Email: &email})
	require.Error(t, err)
	assert.Equal(t, userbase.DuplicateFieldEmail, userbase.DuplicateField(err))
}

func TestDirectoryHashedIDs(t *testing.T) {
	first := setupManager(t, WithHashedIDs()).Directory()
	second := setupManager(t, WithHashedIDs()).Directory()

	a := createIdentity(t, first, "Ada", "ada@example.com", "ada")
	b := createIdentity(t, second, "Ada", "ADA@example.com", "ada")

	assert.Equal(t, a.ID(), b.ID())
}

func TestDirectoryFindByEmailOrHandle(t *testing.T) {
	m := setupManager(t)
	d := m.Directory()
	ctx := context.Background()

	ada := createIdentity(t, d, "Ada", "ada@example.com", "ada")
	bob := createIdentity(t, d, "Bob", "bob@example.com", "bob")

	matches, err := d.FindByEmailOrHandle(ctx, "ADA@example.com")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ada.ID(), matches[0].ID())

	matches, err = d.FindByEmailOrHandle(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, bob.ID(), matches[0].ID())

	matches, err = d.FindByEmailOrHandle(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = d.FindByEmailOrHandle(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDirectoryUpdateProfile(t *testing.T) {
	m := setupManager(t)
	d := m.Directory()
	ctx := context.Background()

	ada := createIdentity(t, d, "Ada", "ada@example.com", "ada")
	createIdentity(t, d, "Bob", "bob@example.com", "bob")

	name := "Ada King"
	verified := true
	updated, err := d.UpdateProfile(ctx, ada.ID(), userbase.ProfileUpdate{Name: &name, EmailVerified: &verified})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", updated.Name())
	assert.Equal(t, "ada@example.com", updated.Email())
	assert.True(t, updated.EmailVerified())

	taken := "bob@example.com"
	_, err = d.UpdateProfile(ctx, ada.ID(), userbase.ProfileUpdate{Email: &taken})
	require.Error(t, err)
	assert.Equal(t, userbase.DuplicateFieldEmail, userbase.DuplicateField(err))

	_, err = d.UpdateProfile(ctx, "00000000-0000-0000-0000-000000000001", userbase.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, userbase.ErrIdentityNotFound)
}

func TestDirectoryCredentials(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	m := setupManager(t, WithDirectoryClock(func() time.Time { return now }))
	d := m.Directory()
	ctx := context.Background()

	ada := createIdentity(t, d, "Ada", "ada@example.com", "ada")

	bob, err := d.CreateIdentity(ctx, userbase.NewIdentityRecord{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	cred, err := d.GetCredential(ctx, testScheme, bob.ID())
	require.NoError(t, err)
	assert.Nil(t, cred)

	require.NoError(t, d.AddCredential(ctx, userbase.Credential{
		IdentityID: bob.ID(),
		Scheme:     testScheme,
		Handle:     "bob",
		SecretHash: "hash-bob",
	}))

	err = d.AddCredential(ctx, userbase.Credential{
		IdentityID: bob.ID(),
		Scheme:     testScheme,
		Handle:     "bobby",
		SecretHash: "hash",
	})
	require.Error(t, err)
	assert.Equal(t, userbase.DuplicateFieldScheme, userbase.DuplicateField(err))

	found, err := d.FindCredentialByHandle(ctx, testScheme, "bob")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, bob.ID(), found.IdentityID)

	missing, err := d.FindCredentialByHandle(ctx, testScheme, "carol")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, d.SetRequiresReset(ctx, testScheme, ada.ID(), true))
	cred, err = d.GetCredential(ctx, testScheme, ada.ID())
	require.NoError(t, err)
	assert.True(t, cred.RequiresReset)

	require.NoError(t, d.UpdateSecret(ctx, testScheme, ada.ID(), "new-hash", false))
	cred, err = d.GetCredential(ctx, testScheme, ada.ID())
	require.NoError(t, err)
	assert.Equal(t, "new-hash", cred.SecretHash)
	assert.Equal(t, "ada", cred.Handle)
	assert.False(t, cred.RequiresReset)

	err = d.UpdateSecret(ctx, "other", ada.ID(), "x", false)
	assert.ErrorIs(t, err, userbase.ErrIdentityNotFound)

	count, err := d.CountCredentials(ctx, testScheme)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDirectoryDailyRegistrations(t *testing.T) {
	m := setupManager(t)
	d := m.Directory()
	ctx := context.Background()

	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 3, 23, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{day2, day1, day1.Add(2 * time.Hour)} {
		_, err := d.CreateIdentity(ctx, userbase.NewIdentityRecord{
			Name:       "User",
			Email:      string(rune('a'+i)) + "@example.com",
			Scheme:     testScheme,
			Handle:     "user" + string(rune('a'+i)),
			SecretHash: "x",
			CreatedAt:  at,
		})
		require.NoError(t, err)
	}

	daily, err := d.DailyRegistrations(ctx, testScheme)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), daily[0].Day)
	assert.Equal(t, 2, daily[0].Count)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), daily[1].Day)
	assert.Equal(t, 1, daily[1].Count)
}

func TestDirectoryRecordActivity(t *testing.T) {
	m := setupManager(t)
	d := m.Directory()
	ctx := context.Background()

	ada := createIdentity(t, d, "Ada", "ada@example.com", "ada")

	err := d.RecordActivity(ctx, userbase.ActivityEvent{
		Kind:       userbase.ActivityLoginPassword,
		IdentityID: ada.ID(),
		Actor:      userbase.ActorRef{ID: ada.ID(), Type: userbase.ActorTypeUser},
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	rows, err := d.Activity(ctx, ada.ID())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, string(userbase.ActivityLoginPassword), rows[0].Verb)
	assert.Equal(t, ada.ID(), rows[0].ActorID)
	assert.Equal(t, activitymap.CategoryCredential, rows[0].Metadata[activitymap.MetadataKeyCategory])
}

func TestManagerRunInTxRollsBack(t *testing.T) {
	m := setupManager(t)
	d := m.Directory()
	ctx := context.Background()

	var createdID string
	err := m.RunInTx(ctx, func(ctx context.Context) error {
		identity, err := d.CreateIdentity(ctx, userbase.NewIdentityRecord{
			Name:       "Ada",
			Email:      "ada@example.com",
			Scheme:     testScheme,
			Handle:     "ada",
			SecretHash: "x",
		})
		if err != nil {
			return err
		}
		createdID = identity.ID()
		return userbase.ErrInvitationAccepted
	})
	require.ErrorIs(t, err, userbase.ErrInvitationAccepted)
	require.NotEmpty(t, createdID)

	_, err = d.GetIdentity(ctx, createdID)
	assert.ErrorIs(t, err, userbase.ErrIdentityNotFound)
}

func TestDirectorySetRole(t *testing.T) {
	m := setupManager(t)
	d := m.Directory()
	ctx := context.Background()

	ada := createIdentity(t, d, "Ada", "ada@example.com", "ada")

	require.NoError(t, d.SetRole(ctx, ada.ID(), userbase.RoleAdmin))
	loaded, err := d.GetIdentity(ctx, ada.ID())
	require.NoError(t, err)
	assert.Equal(t, string(userbase.RoleAdmin), loaded.Role())

	assert.ErrorIs(t, d.SetRole(ctx, ada.ID(), "root"), userbase.ErrInvalidRole)
	assert.ErrorIs(t, d.SetRole(ctx, "00000000-0000-0000-0000-000000000001", userbase.RoleAdmin), userbase.ErrIdentityNotFound)
}
