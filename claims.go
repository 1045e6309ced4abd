package userbase

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the signed payload of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID          string `json:"uid,omitempty"`
	UserRole     string `json:"role,omitempty"`
	Impersonator string `json:"imp,omitempty"`
	Remember     bool   `json:"rem,omitempty"`
	PendingReset bool   `json:"rst,omitempty"`
}

// SessionID returns the token id, which doubles as the session id.
func (c *SessionClaims) SessionID() string {
	return c.RegisteredClaims.ID
}

// UserID returns the user ID
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issued at time
func (c *SessionClaims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

func claimsFromSession(s Session, issuer string, audience []string) *SessionClaims {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Issuer:    issuer,
			Subject:   s.IdentityID,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		UID:          s.IdentityID,
		UserRole:     s.Role,
		Impersonator: s.ImpersonatorID,
		Remember:     s.Remember,
		PendingReset: s.PendingReset,
	}
	if len(audience) > 0 {
		claims.Audience = jwt.ClaimStrings(audience)
	}
	ensureTokenID(&claims.RegisteredClaims)
	return claims
}

func sessionFromClaims(c *SessionClaims) Session {
	return Session{
		ID:             c.SessionID(),
		IdentityID:     c.UserID(),
		Role:           c.UserRole,
		ImpersonatorID: c.Impersonator,
		Remember:       c.Remember,
		PendingReset:   c.PendingReset,
		IssuedAt:       c.Issued(),
		ExpiresAt:      c.Expires(),
	}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims != nil && claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
