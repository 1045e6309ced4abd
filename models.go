package userbase

import (
	"time"
)

// SchemeID identifies an authentication scheme, e.g. "userpass".
type SchemeID string

func (s SchemeID) String() string {
	return string(s)
}

// InvitationState is derived from the invitation fields, it is never stored.
type InvitationState string

const (
	InvitationUnsent   InvitationState = "unsent"
	InvitationSent     InvitationState = "sent"
	InvitationAccepted InvitationState = "accepted"
)

// Invitation is an admin issued code that gates account creation.
type Invitation struct {
	Code          string    `json:"code" yaml:"code"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	IssuerID      string    `json:"issuer_id,omitempty" yaml:"issuer_id,omitempty"`
	IsAdminInvite bool      `json:"is_admin_invite" yaml:"is_admin_invite"`
	Note          *string   `json:"note,omitempty" yaml:"note,omitempty"`
	AcceptedBy    *string   `json:"accepted_by,omitempty" yaml:"accepted_by,omitempty"`
}

// State returns the lifecycle state of the invitation.
func (i Invitation) State() InvitationState {
	switch {
	case i.AcceptedBy != nil:
		return InvitationAccepted
	case i.Note != nil:
		return InvitationSent
	default:
		return InvitationUnsent
	}
}

// NoteText returns the note or an empty string.
func (i Invitation) NoteText() string {
	if i.Note == nil {
		return ""
	}
	return *i.Note
}

// AcceptedByID returns the accepting identity id or an empty string.
func (i Invitation) AcceptedByID() string {
	if i.AcceptedBy == nil {
		return ""
	}
	return *i.AcceptedBy
}

// AdminFilter narrows sent and accepted listings by issuer kind.
type AdminFilter int

const (
	AnyIssuer AdminFilter = iota
	AdminOnly
	UserOnly
)

func (f AdminFilter) String() string {
	switch f {
	case AdminOnly:
		return "admin"
	case UserOnly:
		return "user"
	default:
		return "any"
	}
}

// ParseAdminFilter maps "admin", "user" and "" or "any" to a filter.
func ParseAdminFilter(value string) (AdminFilter, bool) {
	switch value {
	case "", "any", "all":
		return AnyIssuer, true
	case "admin":
		return AdminOnly, true
	case "user":
		return UserOnly, true
	default:
		return AnyIssuer, false
	}
}

// Credential is the per scheme secret material of an identity.
type Credential struct {
	IdentityID    string    `json:"identity_id"`
	Scheme        SchemeID  `json:"scheme"`
	Handle        string    `json:"handle"`
	SecretHash    string    `json:"-"`
	RequiresReset bool      `json:"requires_reset"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DailyCount is the number of registrations on a calendar day.
type DailyCount struct {
	Day   time.Time `json:"day" yaml:"day"`
	Count int       `json:"count" yaml:"count"`
}

// SchemeStats summarizes one authentication scheme.
type SchemeStats struct {
	Scheme         SchemeID     `json:"scheme" yaml:"scheme"`
	Title          string       `json:"title" yaml:"title"`
	LegendColor    string       `json:"legend_color" yaml:"legend_color"`
	ConnectedUsers int          `json:"connected_users" yaml:"connected_users"`
	Daily          []DailyCount `json:"daily" yaml:"daily"`
}

func stringPtr(s string) *string {
	return &s
}
