package userbase

import (
	"context"

	"github.com/goliatone/go-errors"
)

// FieldInvitation is the form field that carries invitation problems.
const FieldInvitation = "invitation"

const (
	msgInvitationUnknown  = "Invalid invitation code"
	msgInvitationUsed     = "This invitation code was already used"
	msgInvitationNotSent  = "This invitation code was not issued yet"
	msgInvitationRequired = "Invitation code is required"
)

// errRegistrationRejected aborts the registration transaction when the
// scheme returned field errors.
var errRegistrationRejected = errors.New("registration rejected", errors.CategoryValidation)

// Service is the entry point used by the web layer. It dispatches to the
// registered scheme modules, gates registration on invitations and hands
// sessions out.
type Service struct {
	registry       *ModuleRegistry
	ledger         *InvitationLedger
	sessions       *SessionCoordinator
	directory      IdentityDirectory
	tx             TxRunner
	policy         Policy
	logger         Logger
	loggerProvider LoggerProvider
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithTxRunner runs registration and invitation acceptance in one
// transaction.
func WithTxRunner(tx TxRunner) ServiceOption {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithPolicy overrides the default policy.
func WithPolicy(policy Policy) ServiceOption {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceLoggerProvider sets the logger provider.
func WithServiceLoggerProvider(provider LoggerProvider) ServiceOption {
	return func(s *Service) {
		if provider != nil {
			s.loggerProvider = provider
		}
	}
}

// NewService wires the service.
func NewService(registry *ModuleRegistry, ledger *InvitationLedger, sessions *SessionCoordinator, directory IdentityDirectory, opts ...ServiceOption) *Service {
	s := &Service{
		registry:  registry,
		ledger:    ledger,
		sessions:  sessions,
		directory: directory,
		tx:        noopTxRunner{},
		policy:    DefaultPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.loggerProvider, s.logger = ResolveLogger("userbase.service", s.loggerProvider, s.logger)
	return s
}

// Registry returns the module registry.
func (s *Service) Registry() *ModuleRegistry {
	return s.registry
}

// Ledger returns the invitation ledger.
func (s *Service) Ledger() *InvitationLedger {
	return s.ledger
}

// Sessions returns the session coordinator.
func (s *Service) Sessions() *SessionCoordinator {
	return s.sessions
}

// Login authenticates form against scheme. A nil session without field
// errors means the credentials did not match. Sessions for credentials
// flagged for reset are restricted to CompletePasswordReset.
func (s *Service) Login(ctx context.Context, scheme SchemeID, form FormData) (Outcome[*Session], error) {
	module, err := s.registry.Get(scheme)
	if err != nil {
		return Outcome[*Session]{}, err
	}

	out, err := module.Login(ctx, form)
	if err != nil {
		return Outcome[*Session]{}, s.wrap(err, "login failed")
	}
	if !out.OK() {
		return Reject[*Session](out.Errors), nil
	}
	if !out.Value.Authenticated() {
		return Outcome[*Session]{Warnings: out.Warnings}, nil
	}

	session, err := s.sessions.Establish(ctx, out.Value.Identity, EstablishOptions{
		Remember:     out.Value.Remember,
		PendingReset: out.Value.RequiresReset,
	})
	if err != nil {
		return Outcome[*Session]{}, s.wrap(err, "could not establish session")
	}

	return Succeed(session, out.Warnings...), nil
}

// Register creates an identity through scheme. When invitations are
// required the code is checked first and consumed in the same transaction
// as the identity, so a caller losing the race on a code leaves no identity
// behind and gets ErrInvitationAccepted. A rejected registration rolls the
// transaction back; activity is written only after commit.
func (s *Service) Register(ctx context.Context, scheme SchemeID, inviteCode string, form FormData) (Outcome[*Session], error) {
	module, err := s.registry.Get(scheme)
	if err != nil {
		return Outcome[*Session]{}, err
	}

	if s.policy.RequireInvitation {
		if fieldErrs, err := s.checkInvitation(ctx, inviteCode); err != nil || fieldErrs != nil {
			return Reject[*Session](fieldErrs), err
		}
	}

	txCtx, activity := deferActivity(ctx)

	var out Outcome[LoginResult]
	err = s.tx.RunInTx(txCtx, func(ctx context.Context) error {
		var err error
		out, err = module.Register(ctx, form)
		if err != nil {
			return err
		}
		if !out.OK() {
			return errRegistrationRejected
		}
		if !out.Value.Authenticated() || !s.policy.RequireInvitation {
			return nil
		}
		return s.ledger.Accept(ctx, inviteCode, out.Value.Identity.ID())
	})
	if err != nil {
		activity.discard()
		switch {
		case errors.Is(err, errRegistrationRejected):
			return Reject[*Session](out.Errors), nil
		case IsInvariantViolation(err):
			s.logger.Info("registration lost invitation race", "code", inviteCode, "error", err)
			return Outcome[*Session]{}, err
		}
		return Outcome[*Session]{}, s.wrap(err, "registration failed")
	}
	out.Warnings = compactErrors(append(out.Warnings, activity.flush(ctx)...))
	if !out.Value.Authenticated() {
		return Outcome[*Session]{Warnings: out.Warnings}, nil
	}

	session, err := s.sessions.Establish(ctx, out.Value.Identity, EstablishOptions{Remember: out.Value.Remember})
	if err != nil {
		return Outcome[*Session]{}, s.wrap(err, "could not establish session")
	}

	return Succeed(session, out.Warnings...), nil
}

// EditProfile updates identity through scheme.
func (s *Service) EditProfile(ctx context.Context, scheme SchemeID, identity Identity, form FormData) (Outcome[bool], error) {
	module, err := s.registry.Get(scheme)
	if err != nil {
		return Outcome[bool]{}, err
	}
	out, err := module.EditProfile(ctx, identity, form)
	if err != nil {
		return Outcome[bool]{}, s.wrap(err, "profile update failed")
	}
	return out, nil
}

// UpdateSecret changes the secret of identity through scheme.
func (s *Service) UpdateSecret(ctx context.Context, scheme SchemeID, identity Identity, form FormData) (Outcome[bool], error) {
	module, err := s.registry.Get(scheme)
	if err != nil {
		return Outcome[bool]{}, err
	}
	out, err := module.UpdateSecret(ctx, identity, form)
	if err != nil {
		return Outcome[bool]{}, s.wrap(err, "secret update failed")
	}
	return out, nil
}

// Authenticate resolves token for general use. Sessions restricted to a
// password reset are refused with ErrPasswordResetRequired.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.PendingReset {
		return nil, ErrPasswordResetRequired
	}
	return session, nil
}

// CompletePasswordReset sets a new secret for the owner of a restricted
// session and exchanges the session for a regular one.
func (s *Service) CompletePasswordReset(ctx context.Context, scheme SchemeID, session *Session, form FormData) (Outcome[*Session], error) {
	if session == nil || !session.PendingReset {
		return Outcome[*Session]{}, ErrResetNotPending
	}

	module, err := s.registry.Get(scheme)
	if err != nil {
		return Outcome[*Session]{}, err
	}

	identity, err := s.directory.GetIdentity(ctx, session.IdentityID)
	if err != nil {
		return Outcome[*Session]{}, s.wrap(err, "could not load identity")
	}
	if identity == nil {
		return Outcome[*Session]{}, ErrIdentityNotFound
	}

	out, err := module.UpdateSecret(ctx, identity, form)
	if err != nil {
		return Outcome[*Session]{}, s.wrap(err, "password reset failed")
	}
	if !out.OK() {
		return Reject[*Session](out.Errors), nil
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		s.logger.Warn("could not revoke reset session", "session", session.ID, "error", err)
		out.Warnings = append(out.Warnings, err)
	}

	fresh, err := s.sessions.Establish(ctx, identity, EstablishOptions{Remember: session.Remember})
	if err != nil {
		return Outcome[*Session]{}, s.wrap(err, "could not establish session")
	}
	return Succeed(fresh, out.Warnings...), nil
}

// RequirePasswordReset flags the credential of identityID so the next login
// only yields a restricted session.
func (s *Service) RequirePasswordReset(ctx context.Context, scheme SchemeID, identityID string) error {
	module, err := s.registry.Get(scheme)
	if err != nil {
		return err
	}
	resetter, ok := module.(SecretResetter)
	if !ok {
		return ErrResetUnsupported
	}
	if err := resetter.RequireReset(ctx, identityID); err != nil {
		return s.wrap(err, "could not require password reset")
	}
	s.logger.Info("password reset required", "scheme", scheme, "identity", identityID)
	return nil
}

// SchemeStats reports usage of every registered scheme.
func (s *Service) SchemeStats(ctx context.Context) ([]SchemeStats, error) {
	modules := s.registry.Modules()
	out := make([]SchemeStats, 0, len(modules))
	for _, module := range modules {
		connected, err := module.ConnectedUserCount(ctx)
		if err != nil {
			return nil, s.wrap(err, "could not count connected users")
		}
		daily, err := module.DailyRegistrations(ctx)
		if err != nil {
			return nil, s.wrap(err, "could not load daily registrations")
		}

		stats := SchemeStats{
			Scheme:         module.ID(),
			Title:          module.Title(),
			ConnectedUsers: connected,
			Daily:          daily,
		}
		if colorer, ok := module.(LegendColorer); ok {
			stats.LegendColor = colorer.LegendColor()
		}
		out = append(out, stats)
	}
	return out, nil
}

func (s *Service) checkInvitation(ctx context.Context, code string) (*FieldErrors, error) {
	if normalizeCode(code) == "" {
		return NewFieldErrors(ValidationKind).Add(FieldInvitation, msgInvitationRequired), nil
	}

	_, err := s.ledger.Validate(ctx, code)
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, ErrInvitationNotFound):
		return NewFieldErrors(ValidationKind).Add(FieldInvitation, msgInvitationUnknown), nil
	case errors.Is(err, ErrInvitationAccepted):
		return NewFieldErrors(ValidationKind).Add(FieldInvitation, msgInvitationUsed), nil
	case errors.Is(err, ErrInvitationNotSent):
		return NewFieldErrors(ValidationKind).Add(FieldInvitation, msgInvitationNotSent), nil
	default:
		return nil, s.wrap(err, "could not validate invitation")
	}
}

func (s *Service) wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return err
	}
	s.logger.Error(message, "error", err)
	return errors.Wrap(err, errors.CategoryInternal, message)
}
