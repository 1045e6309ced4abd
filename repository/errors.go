package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/goliatone/go-userbase"
)

const (
	credentialHandleIndex = "credentials_scheme_handle_key"
	userEmailIndex        = "users_lower_email_key"
	pqUniqueViolation     = "23505"
	sqliteUniqueViolation = "UNIQUE constraint failed"
)

// IsDuplicate reports whether err is a unique constraint violation from
// SQLite or Postgres.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if userbase.IsDuplicate(err) {
		return true
	}
	_, ok := uniqueViolation(err)
	return ok
}

// uniqueViolation walks the chain of err and returns the driver detail of
// the first unique violation found.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return pqErr.Constraint + " " + pqErr.Detail, true
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if msg := e.Error(); strings.Contains(msg, sqliteUniqueViolation) {
			return msg, true
		}
	}
	return "", false
}

// mapDuplicate turns unique violations into userbase.DuplicateError naming
// the offending field and returns other errors unchanged.
func mapDuplicate(err error, fallbackField string) error {
	if err == nil || userbase.IsDuplicate(err) {
		return err
	}
	detail, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	return userbase.NewDuplicateError(duplicateField(detail, fallbackField), err)
}

func duplicateField(detail, fallback string) string {
	switch {
	case strings.Contains(detail, "email"):
		return userbase.DuplicateFieldEmail
	case strings.Contains(detail, "handle"), strings.Contains(detail, credentialHandleIndex):
		return userbase.DuplicateFieldHandle
	case strings.Contains(detail, "identity_id"), strings.Contains(detail, "credentials_pkey"):
		return userbase.DuplicateFieldScheme
	case strings.Contains(detail, "code"), strings.Contains(detail, "invitations_pkey"):
		return userbase.DuplicateFieldCode
	}
	return fallback
}
