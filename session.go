package userbase

import (
	"context"
	"time"
)

// Session is an authenticated context bound to an identity.
type Session struct {
	ID             string    `json:"id"`
	IdentityID     string    `json:"identity_id"`
	Role           string    `json:"role,omitempty"`
	ImpersonatorID string    `json:"impersonator_id,omitempty"`
	Remember       bool      `json:"remember,omitempty"`
	PendingReset   bool      `json:"pending_reset,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Token          string    `json:"-"`
}

// IsImpersonation reports whether an administrator acts as the identity.
func (s *Session) IsImpersonation() bool {
	return s != nil && s.ImpersonatorID != ""
}

// Expired reports whether the session is past its expiration at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// EstablishOptions tune a new session.
type EstablishOptions struct {
	Remember bool
	// PendingReset restricts the session to completing a password reset.
	PendingReset bool
}

// SessionStore keeps live sessions so they can be revoked before expiry.
type SessionStore interface {
	SaveSession(ctx context.Context, session Session, ttl time.Duration) error
	// GetSession returns nil, nil for unknown or expired sessions.
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
}
