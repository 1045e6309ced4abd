package userbase_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-userbase"
)

func TestDuplicateError(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: users.email")
	err := fmt.Errorf("create identity: %w", userbase.NewDuplicateError(userbase.DuplicateFieldEmail, cause))

	assert.True(t, userbase.IsDuplicate(err))
	assert.ErrorIs(t, err, userbase.ErrDuplicate)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, userbase.DuplicateFieldEmail, userbase.DuplicateField(err))

	assert.False(t, userbase.IsDuplicate(cause))
	assert.False(t, userbase.IsDuplicate(nil))
	assert.Empty(t, userbase.DuplicateField(cause))
}

func TestIsInvariantViolation(t *testing.T) {
	assert.True(t, userbase.IsInvariantViolation(userbase.ErrInvitationAccepted))
	assert.True(t, userbase.IsInvariantViolation(fmt.Errorf("wrapped: %w", userbase.ErrSelfImpersonation)))
	assert.False(t, userbase.IsInvariantViolation(userbase.ErrIdentityNotFound))
	assert.False(t, userbase.IsInvariantViolation(nil))
}
