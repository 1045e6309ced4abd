package userbase

import (
	"context"
	"time"
)

// Identity holds the attributes of a user record owned by the
// IdentityDirectory. The core only reads it.
type Identity interface {
	ID() string
	Name() string
	Email() string
	EmailVerified() bool
	Role() string
}

// NewIdentityRecord describes an identity to be created together with its
// first credential.
type NewIdentityRecord struct {
	Name       string
	Email      string
	Scheme     SchemeID
	Handle     string
	SecretHash string
	CreatedAt  time.Time
}

// ProfileUpdate carries the identity attributes the edit flow may change.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name          *string
	Email         *string
	EmailVerified *bool
}

// IdentityDirectory is the external user record store
type IdentityDirectory interface {
	// CreateIdentity creates the identity and its credential atomically.
	CreateIdentity(ctx context.Context, record NewIdentityRecord) (Identity, error)
	GetIdentity(ctx context.Context, id string) (Identity, error)
	// FindByEmailOrHandle matches value against emails and credential
	// handles of every scheme.
	FindByEmailOrHandle(ctx context.Context, value string) ([]Identity, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (Identity, error)
	RecordActivity(ctx context.Context, event ActivityEvent) error
}

// CredentialStore persists per scheme credential rows keyed by identity.
type CredentialStore interface {
	// GetCredential returns nil, nil when the identity never adopted scheme.
	GetCredential(ctx context.Context, scheme SchemeID, identityID string) (*Credential, error)
	// FindCredentialByHandle returns nil, nil when no credential uses handle.
	FindCredentialByHandle(ctx context.Context, scheme SchemeID, handle string) (*Credential, error)
	// AddCredential attaches a new credential to an existing identity.
	AddCredential(ctx context.Context, credential Credential) error
	// UpdateSecret replaces secret material and the reset flag. The handle
	// is never rewritten.
	UpdateSecret(ctx context.Context, scheme SchemeID, identityID, secretHash string, requiresReset bool) error
	SetRequiresReset(ctx context.Context, scheme SchemeID, identityID string, requiresReset bool) error
	CountCredentials(ctx context.Context, scheme SchemeID) (int, error)
	DailyRegistrations(ctx context.Context, scheme SchemeID) ([]DailyCount, error)
}

// AdminCapability decides if an identity may act as an administrator.
type AdminCapability interface {
	HasAdminCapability(ctx context.Context, identity Identity) (bool, error)
}

// AdminCapabilityFunc adapts a function to the AdminCapability interface.
type AdminCapabilityFunc func(ctx context.Context, identity Identity) (bool, error)

// HasAdminCapability implements AdminCapability.
func (f AdminCapabilityFunc) HasAdminCapability(ctx context.Context, identity Identity) (bool, error) {
	if f == nil {
		return false, nil
	}
	return f(ctx, identity)
}

// PasswordHasher hashes and verifies secrets. Implementations are opaque
// to the core.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TxRunner runs fn inside a storage transaction carried by ctx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noopTxRunner struct{}

func (noopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
