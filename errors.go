package userbase

import (
	stderrors "errors"
	"fmt"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicate             = "DUPLICATE_RECORD"
	TextCodeIdentityNotFound      = "IDENTITY_NOT_FOUND"
	TextCodeInvitationNotFound    = "INVITATION_NOT_FOUND"
	TextCodeInvitationAccepted    = "INVITATION_ACCEPTED"
	TextCodeInvitationNotSent     = "INVITATION_NOT_SENT"
	TextCodeInvitationNote        = "INVITATION_NOTE_REQUIRED"
	TextCodeInvalidInvitation     = "INVALID_INVITATION_TRANSITION"
	TextCodeCodeSpaceExhausted    = "INVITATION_CODE_COLLISIONS"
	TextCodeSchemeNotFound        = "SCHEME_NOT_FOUND"
	TextCodeSelfImpersonation     = "SELF_IMPERSONATION"
	TextCodeNotImpersonating      = "NOT_IMPERSONATING"
	TextCodeSessionNotFound       = "SESSION_NOT_FOUND"
	TextCodeSessionExpired        = "SESSION_EXPIRED"
	TextCodeSessionMalformed      = "SESSION_MALFORMED"
	TextCodeResetNotPending       = "PASSWORD_RESET_NOT_PENDING"
	TextCodeEmptyPassword         = "EMPTY_PASSWORD"
	TextCodeMismatchedPassword    = "MISMATCHED_PASSWORD"
	TextCodeInvalidGenerateAmount = "INVALID_GENERATE_AMOUNT"
	TextCodeResetRequired         = "PASSWORD_RESET_REQUIRED"
	TextCodeResetUnsupported      = "PASSWORD_RESET_UNSUPPORTED"
	TextCodeInvalidRole           = "INVALID_ROLE"
)

// ErrDuplicate is returned by stores when a unique constraint rejects a
// write. Stores wrap it so errors.Is keeps working.
var ErrDuplicate = errors.New("record already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicate).
	WithCode(errors.CodeConflict)

// ErrIdentityNotFound is returned when a referenced identity does not exist.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvitationNotFound is returned when no invitation uses the code.
var ErrInvitationNotFound = errors.New("invitation not found", errors.CategoryNotFound).
	WithTextCode(TextCodeInvitationNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvitationAccepted is returned when mutating an accepted invitation.
var ErrInvitationAccepted = errors.New("invitation already accepted", errors.CategoryConflict).
	WithTextCode(TextCodeInvitationAccepted).
	WithCode(errors.CodeConflict)

// ErrInvitationNotSent is returned when accepting an invitation nobody sent.
var ErrInvitationNotSent = errors.New("invitation was not sent", errors.CategoryValidation).
	WithTextCode(TextCodeInvitationNotSent).
	WithCode(errors.CodeBadRequest)

// ErrInvitationNoteRequired is returned when sending without a note.
var ErrInvitationNoteRequired = errors.New("invitation note is required", errors.CategoryValidation).
	WithTextCode(TextCodeInvitationNote).
	WithCode(errors.CodeBadRequest)

// ErrInvalidInvitationEvent is returned for events the lifecycle does not know.
var ErrInvalidInvitationEvent = errors.New("invalid invitation transition", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidInvitation).
	WithCode(errors.CodeBadRequest)

// ErrCodeSpaceExhausted is returned when every draw for a code collided.
var ErrCodeSpaceExhausted = errors.New("could not draw a unique invitation code", errors.CategoryConflict).
	WithTextCode(TextCodeCodeSpaceExhausted).
	WithCode(errors.CodeConflict)

// ErrInvalidGenerateAmount is returned when asked to generate a negative count.
var ErrInvalidGenerateAmount = errors.New("invitation count must not be negative", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidGenerateAmount).
	WithCode(errors.CodeBadRequest)

// ErrSchemeNotFound is returned when no module is registered for a scheme.
var ErrSchemeNotFound = errors.New("authentication scheme not found", errors.CategoryNotFound).
	WithTextCode(TextCodeSchemeNotFound).
	WithCode(errors.CodeNotFound)

// ErrSelfImpersonation is returned when an actor tries to impersonate itself.
var ErrSelfImpersonation = errors.New("cannot impersonate yourself", errors.CategoryValidation).
	WithTextCode(TextCodeSelfImpersonation).
	WithCode(errors.CodeBadRequest)

// ErrNotImpersonating is returned when stopping a regular session.
var ErrNotImpersonating = errors.New("session is not an impersonation", errors.CategoryValidation).
	WithTextCode(TextCodeNotImpersonating).
	WithCode(errors.CodeBadRequest)

// ErrSessionNotFound is returned for unknown or revoked sessions.
var ErrSessionNotFound = errors.New("session not found", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrSessionExpired is returned for sessions past their expiration.
var ErrSessionExpired = errors.New("session expired", errors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(errors.CodeUnauthorized)

// ErrSessionMalformed is returned when a token cannot be decoded.
var ErrSessionMalformed = errors.New("session token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeSessionMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrResetNotPending is returned when completing a reset for a session that
// was not issued for one.
var ErrResetNotPending = errors.New("session has no pending password reset", errors.CategoryAuthz).
	WithTextCode(TextCodeResetNotPending).
	WithCode(errors.CodeForbidden)

// ErrPasswordResetRequired is returned when a session restricted to a
// password reset is used for anything else.
var ErrPasswordResetRequired = errors.New("password reset required", errors.CategoryAuthz).
	WithTextCode(TextCodeResetRequired).
	WithCode(errors.CodeForbidden)

// ErrResetUnsupported is returned when a scheme cannot force resets.
var ErrResetUnsupported = errors.New("scheme does not support forced password resets", errors.CategoryBadInput).
	WithTextCode(TextCodeResetUnsupported).
	WithCode(errors.CodeBadRequest)

// ErrInvalidRole is returned when assigning a role outside the hierarchy.
var ErrInvalidRole = errors.New("invalid role", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeMismatchedPassword).
	WithCode(errors.CodeUnauthorized)

// Fields named by DuplicateError.
const (
	DuplicateFieldEmail  = "email"
	DuplicateFieldHandle = "handle"
	DuplicateFieldScheme = "scheme"
	DuplicateFieldCode   = "code"
)

// DuplicateError tells which unique field rejected a write. It matches
// ErrDuplicate with errors.Is.
type DuplicateError struct {
	Field string
	Cause error
}

// NewDuplicateError returns a DuplicateError for field.
func NewDuplicateError(field string, cause error) error {
	return &DuplicateError{Field: field, Cause: cause}
}

func (e *DuplicateError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", ErrDuplicate.Error(), e.Field)
	}
	return fmt.Sprintf("%s: %s: %v", ErrDuplicate.Error(), e.Field, e.Cause)
}

func (e *DuplicateError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrDuplicate}
	}
	return []error{ErrDuplicate, e.Cause}
}

// DuplicateField returns the field of a DuplicateError in err's chain.
func DuplicateField(err error) string {
	var dup *DuplicateError
	if stderrors.As(err, &dup) {
		return dup.Field
	}
	return ""
}

// IsDuplicate reports whether err signals a unique constraint violation.
func IsDuplicate(err error) bool {
	return err != nil && stderrors.Is(err, ErrDuplicate)
}

// IsInvariantViolation reports whether err is one of the lifecycle
// violations the core rejects synchronously.
func IsInvariantViolation(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{
		ErrInvitationAccepted,
		ErrInvitationNotSent,
		ErrInvalidInvitationEvent,
		ErrSelfImpersonation,
		ErrNotImpersonating,
		ErrResetNotPending,
	} {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}
