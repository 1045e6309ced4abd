package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-userbase"
)

// UserModel is the Bun model for identities.
type UserModel struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Name          string    `bun:"name,notnull" json:"name,omitempty"`
	Email         string    `bun:"email,notnull,unique" json:"email,omitempty"`
	EmailVerified bool      `bun:"is_email_verified,notnull" json:"is_email_verified"`
	Role          string    `bun:"user_role,notnull" json:"user_role,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (m *UserModel) toIdentity() userbase.Identity {
	if m == nil {
		return nil
	}
	return userbase.NewIdentity(m.ID.String(), m.Name, m.Email, m.EmailVerified, m.Role)
}

// CredentialModel is the Bun model for per scheme credentials. The primary
// key keeps one credential per identity and scheme.
type CredentialModel struct {
	bun.BaseModel `bun:"table:credentials,alias:cred"`

	IdentityID    uuid.UUID `bun:"identity_id,pk,type:uuid"`
	Scheme        string    `bun:"scheme,pk"`
	Handle        string    `bun:"handle,nullzero"`
	SecretHash    string    `bun:"secret_hash,notnull"`
	RequiresReset bool      `bun:"requires_reset,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func (m *CredentialModel) toCredential() *userbase.Credential {
	if m == nil {
		return nil
	}
	return &userbase.Credential{
		IdentityID:    m.IdentityID.String(),
		Scheme:        userbase.SchemeID(m.Scheme),
		Handle:        m.Handle,
		SecretHash:    m.SecretHash,
		RequiresReset: m.RequiresReset,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// InvitationModel is the Bun model for invitation codes.
type InvitationModel struct {
	bun.BaseModel `bun:"table:invitations,alias:inv"`

	Code          string    `bun:"code,pk"`
	Created       time.Time `bun:"created,notnull"`
	IssuedBy      string    `bun:"issuedby,nullzero"`
	IsAdminInvite bool      `bun:"is_admin_invite,notnull"`
	SentToNote    *string   `bun:"sent_to_note"`
	User          *string   `bun:"user"`
}

func (m *InvitationModel) toInvitation() userbase.Invitation {
	return userbase.Invitation{
		Code:          m.Code,
		CreatedAt:     m.Created,
		IssuerID:      m.IssuedBy,
		IsAdminInvite: m.IsAdminInvite,
		Note:          m.SentToNote,
		AcceptedBy:    m.User,
	}
}

func invitationModel(inv userbase.Invitation) *InvitationModel {
	return &InvitationModel{
		Code:          inv.Code,
		Created:       inv.CreatedAt,
		IssuedBy:      inv.IssuerID,
		IsAdminInvite: inv.IsAdminInvite,
		SentToNote:    inv.Note,
		User:          inv.AcceptedBy,
	}
}

// ActivityModel is the Bun model for recorded activity.
type ActivityModel struct {
	bun.BaseModel `bun:"table:activity,alias:act"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid"`
	ActorID    string         `bun:"actor_id,notnull"`
	Verb       string         `bun:"verb,notnull"`
	ObjectType string         `bun:"object_type"`
	ObjectID   string         `bun:"object_id"`
	Channel    string         `bun:"channel"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
}
