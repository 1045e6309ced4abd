package userbase

import (
	"strings"
)

// InvitationEvent is a lifecycle event applied to an invitation.
type InvitationEvent interface {
	invitationEvent() string
}

// SendInvitation records that the code was handed to someone. Sending an
// already sent invitation replaces the note and issuer.
type SendInvitation struct {
	IssuerID string
	Note     string
}

// AcceptInvitation binds the invitation to the identity that used it.
type AcceptInvitation struct {
	IdentityID string
}

// ReassignInvitation changes the issuer attribution of a pending invitation.
type ReassignInvitation struct {
	IssuerID      string
	IsAdminInvite bool
}

func (SendInvitation) invitationEvent() string     { return "send" }
func (AcceptInvitation) invitationEvent() string   { return "accept" }
func (ReassignInvitation) invitationEvent() string { return "reassign" }

var invitationTransitions = map[InvitationState]map[string]struct{}{
	InvitationUnsent: {
		"send":     {},
		"reassign": {},
	},
	InvitationSent: {
		"send":     {},
		"accept":   {},
		"reassign": {},
	},
	InvitationAccepted: {},
}

// ApplyInvitationEvent returns the invitation that results from evt. The
// input value is never modified.
func ApplyInvitationEvent(inv Invitation, evt InvitationEvent) (Invitation, error) {
	if evt == nil {
		return inv, ErrInvalidInvitationEvent
	}

	from := inv.State()
	if _, ok := invitationTransitions[from][evt.invitationEvent()]; !ok {
		return inv, transitionError(from, evt)
	}

	next := inv
	switch e := evt.(type) {
	case SendInvitation:
		note := strings.TrimSpace(e.Note)
		if note == "" {
			return inv, ErrInvitationNoteRequired
		}
		next.Note = stringPtr(note)
		if e.IssuerID != "" {
			next.IssuerID = e.IssuerID
		}
	case AcceptInvitation:
		if strings.TrimSpace(e.IdentityID) == "" {
			return inv, ErrInvalidInvitationEvent
		}
		next.AcceptedBy = stringPtr(e.IdentityID)
	case ReassignInvitation:
		next.IssuerID = e.IssuerID
		next.IsAdminInvite = e.IsAdminInvite
	default:
		return inv, ErrInvalidInvitationEvent
	}

	return next, nil
}

// CheckInvitation reports whether inv satisfies the lifecycle invariants.
func CheckInvitation(inv Invitation) error {
	if inv.AcceptedBy != nil && inv.Note == nil {
		return ErrInvitationNotSent
	}
	if inv.Note != nil && strings.TrimSpace(*inv.Note) == "" {
		return ErrInvitationNoteRequired
	}
	return nil
}

func transitionError(from InvitationState, evt InvitationEvent) error {
	switch from {
	case InvitationAccepted:
		return ErrInvitationAccepted
	case InvitationUnsent:
		if _, ok := evt.(AcceptInvitation); ok {
			return ErrInvitationNotSent
		}
	}
	return ErrInvalidInvitationEvent
}
