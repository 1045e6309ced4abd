package userbase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-userbase"
)

func ptr(s string) *string {
	return &s
}

func TestInvitationState(t *testing.T) {
	tests := []struct {
		name string
		inv  userbase.Invitation
		want userbase.InvitationState
	}{
		{name: "unsent", inv: userbase.Invitation{Code: "abcdefghij"}, want: userbase.InvitationUnsent},
		{name: "sent", inv: userbase.Invitation{Code: "abcdefghij", Note: ptr("for Ada")}, want: userbase.InvitationSent},
		{name: "accepted", inv: userbase.Invitation{Code: "abcdefghij", Note: ptr("for Ada"), AcceptedBy: ptr("id-1")}, want: userbase.InvitationAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.inv.State())
		})
	}
}

func TestApplyInvitationEventSend(t *testing.T) {
	inv := userbase.Invitation{Code: "abcdefghij", CreatedAt: time.Now(), IsAdminInvite: true}

	next, err := userbase.ApplyInvitationEvent(inv, userbase.SendInvitation{IssuerID: "admin-1", Note: "  for Ada "})
	require.NoError(t, err)
	assert.Equal(t, userbase.InvitationSent, next.State())
	assert.Equal(t, "for Ada", next.NoteText())
	assert.Equal(t, "admin-1", next.IssuerID)
	assert.Equal(t, userbase.InvitationUnsent, inv.State(), "input must not change")

	again, err := userbase.ApplyInvitationEvent(next, userbase.SendInvitation{Note: "for Grace"})
	require.NoError(t, err)
	assert.Equal(t, "for Grace", again.NoteText())
	assert.Equal(t, "admin-1", again.IssuerID)

	_, err = userbase.ApplyInvitationEvent(inv, userbase.SendInvitation{Note: "   "})
	assert.ErrorIs(t, err, userbase.ErrInvitationNoteRequired)
}

func TestApplyInvitationEventAccept(t *testing.T) {
	unsent := userbase.Invitation{Code: "abcdefghij"}
	_, err := userbase.ApplyInvitationEvent(unsent, userbase.AcceptInvitation{IdentityID: "id-1"})
	assert.ErrorIs(t, err, userbase.ErrInvitationNotSent)

	sent := userbase.Invitation{Code: "abcdefghij", Note: ptr("note")}
	_, err = userbase.ApplyInvitationEvent(sent, userbase.AcceptInvitation{})
	assert.ErrorIs(t, err, userbase.ErrInvalidInvitationEvent)

	accepted, err := userbase.ApplyInvitationEvent(sent, userbase.AcceptInvitation{IdentityID: "id-1"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", accepted.AcceptedByID())

	for _, evt := range []userbase.InvitationEvent{
		userbase.AcceptInvitation{IdentityID: "id-2"},
		userbase.SendInvitation{Note: "again"},
		userbase.ReassignInvitation{IssuerID: "user-1"},
	} {
		_, err := userbase.ApplyInvitationEvent(accepted, evt)
		assert.ErrorIs(t, err, userbase.ErrInvitationAccepted)
		assert.True(t, userbase.IsInvariantViolation(err))
	}
}

func TestApplyInvitationEventReassign(t *testing.T) {
	inv := userbase.Invitation{Code: "abcdefghij", IsAdminInvite: true}
	next, err := userbase.ApplyInvitationEvent(inv, userbase.ReassignInvitation{IssuerID: "user-9"})
	require.NoError(t, err)
	assert.Equal(t, "user-9", next.IssuerID)
	assert.False(t, next.IsAdminInvite)

	_, err = userbase.ApplyInvitationEvent(inv, nil)
	assert.ErrorIs(t, err, userbase.ErrInvalidInvitationEvent)
}

func TestCheckInvitation(t *testing.T) {
	assert.NoError(t, userbase.CheckInvitation(userbase.Invitation{Code: "abcdefghij"}))
	assert.ErrorIs(t, userbase.CheckInvitation(userbase.Invitation{AcceptedBy: ptr("id")}), userbase.ErrInvitationNotSent)
	assert.ErrorIs(t, userbase.CheckInvitation(userbase.Invitation{Note: ptr(" ")}), userbase.ErrInvitationNoteRequired)
}

func TestParseAdminFilter(t *testing.T) {
	for _, f := range []userbase.AdminFilter{userbase.AnyIssuer, userbase.AdminOnly, userbase.UserOnly} {
		parsed, ok := userbase.ParseAdminFilter(f.String())
		require.True(t, ok)
		assert.Equal(t, f, parsed)
	}
	_, ok := userbase.ParseAdminFilter("everyone")
	assert.False(t, ok)
}
