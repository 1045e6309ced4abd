package userbase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionCoordinator issues, resolves and revokes sessions and handles
// administrative impersonation.
type SessionCoordinator struct {
	cfg            Config
	tokens         *TokenService
	store          SessionStore
	directory      IdentityDirectory
	admin          AdminCapability
	now            func() time.Time
	activitySink   ActivitySink
	logger         Logger
	loggerProvider LoggerProvider
}

// SessionOption customizes the coordinator.
type SessionOption func(*SessionCoordinator)

// WithAdminCapability sets the capability check used by Impersonate.
func WithAdminCapability(admin AdminCapability) SessionOption {
	return func(c *SessionCoordinator) {
		if admin != nil {
			c.admin = admin
		}
	}
}

// WithSessionDirectory lets StopImpersonating reload the original actor.
func WithSessionDirectory(directory IdentityDirectory) SessionOption {
	return func(c *SessionCoordinator) {
		c.directory = directory
	}
}

// WithSessionActivitySink records impersonation events.
func WithSessionActivitySink(sink ActivitySink) SessionOption {
	return func(c *SessionCoordinator) {
		c.activitySink = normalizeActivitySink(sink)
	}
}

// WithSessionClock injects a clock.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(c *SessionCoordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger Logger) SessionOption {
	return func(c *SessionCoordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSessionLoggerProvider sets the logger provider.
func WithSessionLoggerProvider(provider LoggerProvider) SessionOption {
	return func(c *SessionCoordinator) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// NewSessionCoordinator returns a coordinator signing tokens with cfg and
// keeping live sessions in store. Without WithAdminCapability nobody may
// impersonate.
func NewSessionCoordinator(cfg Config, store SessionStore, opts ...SessionOption) *SessionCoordinator {
	c := &SessionCoordinator{
		cfg:          cfg,
		store:        store,
		admin:        AdminCapabilityFunc(nil),
		now:          time.Now,
		activitySink: noopActivitySink{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.loggerProvider, c.logger = ResolveLogger("userbase.sessions", c.loggerProvider, c.logger)
	c.tokens = NewTokenService(cfg, c.now, c.logger)
	return c
}

// Establish creates a session for identity.
func (c *SessionCoordinator) Establish(ctx context.Context, identity Identity, opts EstablishOptions) (*Session, error) {
	if identity == nil {
		return nil, ErrIdentityNotFound
	}
	return c.issue(ctx, identity.ID(), identity.Role(), "", opts)
}

// Impersonate lets actor act as target. It returns ErrSelfImpersonation when
// both are the same identity and nil, nil when actor lacks the admin
// capability. The capability is checked on every call.
func (c *SessionCoordinator) Impersonate(ctx context.Context, actor, target Identity) (*Session, error) {
	if actor == nil || target == nil {
		return nil, ErrIdentityNotFound
	}

	if actor.ID() == target.ID() {
		return nil, ErrSelfImpersonation
	}

	allowed, err := c.admin.HasAdminCapability(ctx, actor)
	if err != nil {
		c.logger.Error("impersonate capability check failed", "actor", actor.ID(), "error", err)
		return nil, err
	}

	if !allowed {
		c.logger.Warn("impersonation denied", "actor", actor.ID(), "target", target.ID())
		c.record(ctx, ActivityEvent{
			Kind:       ActivityImpersonationDeny,
			IdentityID: target.ID(),
			Actor:      ActorRef{ID: actor.ID(), Type: ActorTypeUser},
		})
		return nil, nil
	}

	session, err := c.issue(ctx, target.ID(), target.Role(), actor.ID(), EstablishOptions{})
	if err != nil {
		return nil, err
	}

	c.record(ctx, ActivityEvent{
		Kind:       ActivityImpersonation,
		IdentityID: target.ID(),
		Actor:      ActorRef{ID: actor.ID(), Type: ActorTypeAdmin},
		Metadata:   map[string]any{"session_id": session.ID},
	})
	return session, nil
}

// StopImpersonating ends an impersonation session and returns a fresh
// session for the administrator who started it.
func (c *SessionCoordinator) StopImpersonating(ctx context.Context, session *Session) (*Session, error) {
	if !session.IsImpersonation() {
		return nil, ErrNotImpersonating
	}

	role := ""
	if c.directory != nil {
		actor, err := c.directory.GetIdentity(ctx, session.ImpersonatorID)
		if err != nil {
			return nil, err
		}
		if actor == nil {
			return nil, ErrIdentityNotFound
		}
		role = actor.Role()
	}

	if err := c.Revoke(ctx, session.ID); err != nil {
		return nil, err
	}

	restored, err := c.issue(ctx, session.ImpersonatorID, role, "", EstablishOptions{})
	if err != nil {
		return nil, err
	}

	c.record(ctx, ActivityEvent{
		Kind:       ActivityImpersonationStop,
		IdentityID: session.IdentityID,
		Actor:      ActorRef{ID: session.ImpersonatorID, Type: ActorTypeAdmin},
	})
	return restored, nil
}

// Resolve validates token and returns the live session it refers to.
func (c *SessionCoordinator) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := c.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	stored, err := c.store.GetSession(ctx, claims.SessionID())
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrSessionNotFound
	}
	if stored.Expired(c.now()) {
		return nil, ErrSessionExpired
	}

	stored.Token = token
	return stored, nil
}

// Revoke removes the session so its token stops resolving.
func (c *SessionCoordinator) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return c.store.DeleteSession(ctx, sessionID)
}

func (c *SessionCoordinator) issue(ctx context.Context, identityID, role, impersonatorID string, opts EstablishOptions) (*Session, error) {
	now := c.now().UTC().Truncate(time.Second)
	lifetime := SessionLifetime(c.cfg, opts.Remember)

	session := Session{
		ID:             uuid.NewString(),
		IdentityID:     identityID,
		Role:           role,
		ImpersonatorID: impersonatorID,
		Remember:       opts.Remember,
		PendingReset:   opts.PendingReset,
		IssuedAt:       now,
		ExpiresAt:      now.Add(lifetime),
	}

	token, err := c.tokens.Sign(session)
	if err != nil {
		c.logger.Error("session sign failed", "identity", identityID, "error", err)
		return nil, err
	}

	if err := c.store.SaveSession(ctx, session, lifetime); err != nil {
		c.logger.Error("session store failed", "identity", identityID, "error", err)
		return nil, err
	}

	session.Token = token
	return &session, nil
}

func (c *SessionCoordinator) record(ctx context.Context, event ActivityEvent) {
	_ = recordActivity(ctx, c.activitySink, c.logger, c.now, event)
}
