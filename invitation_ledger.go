package userbase

import (
	"context"
	"strings"
	"time"
)

// DefaultCodeGenerationAttempts bounds redraws after code collisions.
const DefaultCodeGenerationAttempts = 8

// InvitationStore persists invitations. Conditional writes report whether a
// row matched so the ledger can classify lost races.
type InvitationStore interface {
	// InsertInvitation returns an error wrapping ErrDuplicate when the code
	// already exists.
	InsertInvitation(ctx context.Context, inv Invitation) error
	GetInvitation(ctx context.Context, code string) (*Invitation, error)
	ListUnsentInvitations(ctx context.Context) ([]Invitation, error)
	ListSentInvitations(ctx context.Context, filter AdminFilter) ([]Invitation, error)
	ListAcceptedInvitations(ctx context.Context, filter AdminFilter) ([]Invitation, error)
	// UpdatePendingInvitation rewrites note, issuer, admin flag and acceptor
	// of a row that has not been accepted yet.
	UpdatePendingInvitation(ctx context.Context, inv Invitation) (bool, error)
	// DeletePendingInvitation removes a row that has not been accepted yet.
	DeletePendingInvitation(ctx context.Context, code string) (bool, error)
	// AcceptInvitation sets the acceptor of a sent, unaccepted row.
	AcceptInvitation(ctx context.Context, code, identityID string) (bool, error)
}

// InvitationLedger manages the invitation code lifecycle.
type InvitationLedger struct {
	store          InvitationStore
	generator      *CodeGenerator
	attempts       int
	now            func() time.Time
	activitySink   ActivitySink
	logger         Logger
	loggerProvider LoggerProvider
}

// LedgerOption customizes the ledger.
type LedgerOption func(*InvitationLedger)

// WithCodeGenerator overrides the code generator.
func WithCodeGenerator(generator *CodeGenerator) LedgerOption {
	return func(l *InvitationLedger) {
		if generator != nil {
			l.generator = generator
		}
	}
}

// WithCodeGenerationAttempts sets how many draws a single code may take.
func WithCodeGenerationAttempts(attempts int) LedgerOption {
	return func(l *InvitationLedger) {
		if attempts > 0 {
			l.attempts = attempts
		}
	}
}

// WithLedgerClock injects a clock.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *InvitationLedger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLedgerActivitySink records accepted invitations.
func WithLedgerActivitySink(sink ActivitySink) LedgerOption {
	return func(l *InvitationLedger) {
		l.activitySink = normalizeActivitySink(sink)
	}
}

// WithLedgerLogger sets the logger.
func WithLedgerLogger(logger Logger) LedgerOption {
	return func(l *InvitationLedger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLedgerLoggerProvider sets the logger provider.
func WithLedgerLoggerProvider(provider LoggerProvider) LedgerOption {
	return func(l *InvitationLedger) {
		if provider != nil {
			l.loggerProvider = provider
		}
	}
}

// NewInvitationLedger returns a ledger over store.
func NewInvitationLedger(store InvitationStore, opts ...LedgerOption) *InvitationLedger {
	l := &InvitationLedger{
		store:        store,
		generator:    NewCodeGenerator(),
		attempts:     DefaultCodeGenerationAttempts,
		now:          time.Now,
		activitySink: noopActivitySink{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	l.loggerProvider, l.logger = ResolveLogger("userbase.ledger", l.loggerProvider, l.logger)
	return l
}

// Generate creates count unsent admin invitations. Codes already stored
// stay stored when a later insert fails; they are returned with the error.
func (l *InvitationLedger) Generate(ctx context.Context, count int) ([]Invitation, error) {
	if count < 0 {
		return nil, ErrInvalidGenerateAmount
	}

	out := make([]Invitation, 0, count)
	for i := 0; i < count; i++ {
		inv, err := l.generateOne(ctx)
		if err != nil {
			l.logger.Error("invitation generation stopped", "generated", len(out), "requested", count, "error", err)
			return out, err
		}
		out = append(out, inv)
	}

	l.logger.Debug("invitations generated", "count", len(out))
	return out, nil
}

func (l *InvitationLedger) generateOne(ctx context.Context) (Invitation, error) {
	for attempt := 1; attempt <= l.attempts; attempt++ {
		inv := Invitation{
			Code:          l.generator.Next(),
			CreatedAt:     l.now().UTC(),
			IsAdminInvite: true,
		}

		err := l.store.InsertInvitation(ctx, inv)
		if err == nil {
			return inv, nil
		}
		if !IsDuplicate(err) {
			return Invitation{}, err
		}
		l.logger.Debug("invitation code collision", "attempt", attempt)
	}
	return Invitation{}, ErrCodeSpaceExhausted
}

// ListUnsent returns admin invitations nobody has sent yet.
func (l *InvitationLedger) ListUnsent(ctx context.Context) ([]Invitation, error) {
	return l.store.ListUnsentInvitations(ctx)
}

// ListSent returns sent invitations that are still pending.
func (l *InvitationLedger) ListSent(ctx context.Context, filter AdminFilter) ([]Invitation, error) {
	return l.store.ListSentInvitations(ctx, filter)
}

// ListAccepted returns invitations that were used to register.
func (l *InvitationLedger) ListAccepted(ctx context.Context, filter AdminFilter) ([]Invitation, error) {
	return l.store.ListAcceptedInvitations(ctx, filter)
}

// GetByCode returns nil, nil when no invitation uses code.
func (l *InvitationLedger) GetByCode(ctx context.Context, code string) (*Invitation, error) {
	return l.store.GetInvitation(ctx, normalizeCode(code))
}

// Cancel removes a pending invitation. Cancelling a missing code is a no-op.
func (l *InvitationLedger) Cancel(ctx context.Context, code string) error {
	code = normalizeCode(code)

	deleted, err := l.store.DeletePendingInvitation(ctx, code)
	if err != nil {
		return err
	}
	if deleted {
		l.logger.Debug("invitation cancelled", "code", code)
		return nil
	}

	inv, err := l.store.GetInvitation(ctx, code)
	if err != nil {
		return err
	}
	if inv == nil {
		l.logger.Info("cancel of unknown invitation ignored", "code", code)
		return nil
	}
	if inv.State() == InvitationAccepted {
		return ErrInvitationAccepted
	}
	return nil
}

// Save persists note, issuer, admin flag and acceptor of inv. A sent
// invitation keeps its note.
func (l *InvitationLedger) Save(ctx context.Context, inv Invitation) error {
	inv.Code = normalizeCode(inv.Code)
	if err := CheckInvitation(inv); err != nil {
		return err
	}

	stored, err := l.store.GetInvitation(ctx, inv.Code)
	if err != nil {
		return err
	}
	if stored == nil {
		return ErrInvitationNotFound
	}
	if stored.State() == InvitationAccepted {
		return ErrInvitationAccepted
	}
	if stored.State() == InvitationSent && inv.Note == nil {
		return ErrInvalidInvitationEvent
	}

	updated, err := l.store.UpdatePendingInvitation(ctx, inv)
	if err != nil {
		return err
	}
	if !updated {
		return l.classify(ctx, inv.Code)
	}
	return nil
}

// Send marks the invitation as handed out by issuerID with note.
func (l *InvitationLedger) Send(ctx context.Context, code, issuerID, note string) (*Invitation, error) {
	code = normalizeCode(code)

	stored, err := l.store.GetInvitation(ctx, code)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrInvitationNotFound
	}

	next, err := ApplyInvitationEvent(*stored, SendInvitation{IssuerID: issuerID, Note: note})
	if err != nil {
		return nil, err
	}

	updated, err := l.store.UpdatePendingInvitation(ctx, next)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, l.classify(ctx, code)
	}

	l.logger.Debug("invitation sent", "code", code, "issuer", issuerID)
	return &next, nil
}

// Accept binds a sent invitation to identityID. Exactly one of several
// concurrent callers succeeds; the others get ErrInvitationAccepted.
func (l *InvitationLedger) Accept(ctx context.Context, code, identityID string) error {
	code = normalizeCode(code)
	if strings.TrimSpace(identityID) == "" {
		return ErrInvalidInvitationEvent
	}

	accepted, err := l.store.AcceptInvitation(ctx, code, identityID)
	if err != nil {
		return err
	}
	if !accepted {
		return l.classify(ctx, code)
	}

	_ = recordActivity(ctx, l.activitySink, l.logger, l.now, ActivityEvent{
		Kind:       ActivityInvitationAccepted,
		IdentityID: identityID,
		Metadata:   map[string]any{"code": code},
	})
	return nil
}

// Validate returns the invitation when it can be used to register.
func (l *InvitationLedger) Validate(ctx context.Context, code string) (*Invitation, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrInvitationNotFound
	}

	inv, err := l.store.GetInvitation(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := invitationUsable(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (l *InvitationLedger) classify(ctx context.Context, code string) error {
	inv, err := l.store.GetInvitation(ctx, code)
	if err != nil {
		return err
	}
	if err := invitationUsable(inv); err != nil {
		return err
	}
	return ErrInvalidInvitationEvent
}

func invitationUsable(inv *Invitation) error {
	if inv == nil {
		return ErrInvitationNotFound
	}
	switch inv.State() {
	case InvitationAccepted:
		return ErrInvitationAccepted
	case InvitationUnsent:
		return ErrInvitationNotSent
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
