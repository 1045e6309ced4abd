package usernamepass

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-userbase"
)

const (
	// SchemeID identifies the username and password scheme.
	SchemeID userbase.SchemeID = "userpass"
	// Title is the human readable scheme name.
	Title = "Username / Password"

	legendColor = "a3a3a3"
	loggerName  = "usernamepass"
)

// Module authenticates identities with a handle and a bcrypt hashed
// password.
type Module struct {
	directory      userbase.IdentityDirectory
	credentials    userbase.CredentialStore
	hasher         userbase.PasswordHasher
	policy         userbase.Policy
	tx             userbase.TxRunner
	activitySink   userbase.ActivitySink
	now            func() time.Time
	logger         userbase.Logger
	loggerProvider userbase.LoggerProvider
}

var (
	_ userbase.AuthenticationModule = (*Module)(nil)
	_ userbase.LegendColorer        = (*Module)(nil)
	_ userbase.SecretResetter       = (*Module)(nil)
)

// Option customizes the module.
type Option func(*Module)

// WithHasher replaces the bcrypt hasher.
func WithHasher(hasher userbase.PasswordHasher) Option {
	return func(m *Module) {
		if hasher != nil {
			m.hasher = hasher
		}
	}
}

// WithPolicy sets the validation and remember me rules.
func WithPolicy(policy userbase.Policy) Option {
	return func(m *Module) {
		m.policy = policy
	}
}

// WithTxRunner groups the writes of EditProfile in one transaction.
func WithTxRunner(tx userbase.TxRunner) Option {
	return func(m *Module) {
		if tx != nil {
			m.tx = tx
		}
	}
}

// WithActivitySink overrides where activity is recorded. The directory is
// used by default.
func WithActivitySink(sink userbase.ActivitySink) Option {
	return func(m *Module) {
		if sink != nil {
			m.activitySink = sink
		}
	}
}

// WithClock injects a clock.
func WithClock(now func() time.Time) Option {
	return func(m *Module) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger userbase.Logger) Option {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLoggerProvider sets the logger provider.
func WithLoggerProvider(provider userbase.LoggerProvider) Option {
	return func(m *Module) {
		if provider != nil {
			m.loggerProvider = provider
		}
	}
}

// New returns a module storing identities in directory and credentials in
// credentials.
func New(directory userbase.IdentityDirectory, credentials userbase.CredentialStore, opts ...Option) *Module {
	m := &Module{
		directory:    directory,
		credentials:  credentials,
		hasher:       userbase.NewBcryptHasher(0),
		policy:       userbase.DefaultPolicy(),
		tx:           noopTx{},
		activitySink: userbase.DirectorySink(directory),
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.loggerProvider, m.logger = userbase.ResolveLogger(loggerName, m.loggerProvider, m.logger)
	return m
}

// ID implements userbase.AuthenticationModule.
func (m *Module) ID() userbase.SchemeID {
	return SchemeID
}

// Title implements userbase.AuthenticationModule.
func (m *Module) Title() string {
	return Title
}

// LegendColor implements userbase.LegendColorer.
func (m *Module) LegendColor() string {
	return legendColor
}

// CredentialsFor implements userbase.AuthenticationModule.
func (m *Module) CredentialsFor(ctx context.Context, identity userbase.Identity) (*userbase.Credential, error) {
	if identity == nil {
		return nil, nil
	}
	return m.credentials.GetCredential(ctx, SchemeID, identity.ID())
}

// ConnectedUserCount implements userbase.AuthenticationModule.
func (m *Module) ConnectedUserCount(ctx context.Context) (int, error) {
	return m.credentials.CountCredentials(ctx, SchemeID)
}

// DailyRegistrations implements userbase.AuthenticationModule.
func (m *Module) DailyRegistrations(ctx context.Context) ([]userbase.DailyCount, error) {
	return m.credentials.DailyRegistrations(ctx, SchemeID)
}

// Login implements userbase.AuthenticationModule. Unknown handles and
// wrong passwords yield an empty result and record nothing.
func (m *Module) Login(ctx context.Context, form userbase.FormData) (userbase.Outcome[userbase.LoginResult], error) {
	remember := m.policy.AllowRememberMe && form.Has(FieldRemember)

	handle := NormalizeUsername(form.Get(FieldUsername))
	pass := form.Get(FieldPassword)
	if handle == "" || pass == "" {
		return userbase.Succeed(userbase.LoginResult{}), nil
	}

	cred, err := m.credentials.FindCredentialByHandle(ctx, SchemeID, handle)
	if err != nil {
		return userbase.Outcome[userbase.LoginResult]{}, err
	}
	if cred == nil {
		m.logger.Debug("login for unknown handle", "handle", handle)
		return userbase.Succeed(userbase.LoginResult{}), nil
	}

	if err := m.hasher.ComparePasswordAndHash(pass, cred.SecretHash); err != nil {
		if errors.Is(err, userbase.ErrMismatchedHashAndPassword) {
			m.logger.Debug("login with wrong password", "identity", cred.IdentityID)
			return userbase.Succeed(userbase.LoginResult{}), nil
		}
		return userbase.Outcome[userbase.LoginResult]{}, err
	}

	identity, err := m.directory.GetIdentity(ctx, cred.IdentityID)
	if err != nil {
		return userbase.Outcome[userbase.LoginResult]{}, err
	}

	warning := m.record(ctx, userbase.ActivityLoginPassword, identity.ID())
	return userbase.Succeed(userbase.LoginResult{
		Identity:      identity,
		Remember:      remember,
		RequiresReset: cred.RequiresReset,
	}, warning), nil
}

// Register implements userbase.AuthenticationModule. Malformed input is
// reported before conflicts with existing identities.
func (m *Module) Register(ctx context.Context, form userbase.FormData) (userbase.Outcome[userbase.LoginResult], error) {
	remember := m.policy.AllowRememberMe && m.policy.RememberOnRegistration

	errs := userbase.NewFieldErrors(userbase.ValidationKind)
	m.validatePassword(errs, form)
	username := m.validateUsername(errs, form)
	name := m.validateName(errs, form)
	email := m.validateEmail(errs, form)
	if !errs.Empty() {
		return userbase.Reject[userbase.LoginResult](errs), nil
	}

	conflicts := userbase.NewFieldErrors(userbase.ConflictKind)
	if taken, err := m.taken(ctx, username, ""); err != nil {
		return userbase.Outcome[userbase.LoginResult]{}, err
	} else if taken {
		conflicts.Add(FieldUsername, msgUsernameTaken)
	}
	if taken, err := m.taken(ctx, email, ""); err != nil {
		return userbase.Outcome[userbase.LoginResult]{}, err
	} else if taken {
		conflicts.Add(FieldEmail, msgEmailTaken)
	}
	if !conflicts.Empty() {
		return userbase.Reject[userbase.LoginResult](conflicts), nil
	}

	hash, err := m.hasher.HashPassword(form.Get(FieldPassword))
	if err != nil {
		return userbase.Outcome[userbase.LoginResult]{}, err
	}

	identity, err := m.directory.CreateIdentity(ctx, userbase.NewIdentityRecord{
		Name:       name,
		Email:      email,
		Scheme:     SchemeID,
		Handle:     username,
		SecretHash: hash,
		CreatedAt:  m.now().UTC(),
	})
	if err != nil {
		if userbase.IsDuplicate(err) {
			field, message := conflictField(err)
			m.logger.Info("registration lost uniqueness race", "field", field)
			return userbase.Reject[userbase.LoginResult](userbase.NewFieldErrors(userbase.ConflictKind).Add(field, message)), nil
		}
		return userbase.Outcome[userbase.LoginResult]{}, err
	}

	warning := m.record(ctx, userbase.ActivityRegisterPassword, identity.ID())
	return userbase.Succeed(userbase.LoginResult{Identity: identity, Remember: remember}, warning), nil
}

// EditProfile implements userbase.AuthenticationModule. The username can
// only be set once and setting it requires a password. Otherwise the
// password changes only when one of the password fields is filled in.
func (m *Module) EditProfile(ctx context.Context, identity userbase.Identity, form userbase.FormData) (userbase.Outcome[bool], error) {
	if identity == nil {
		return userbase.Outcome[bool]{}, userbase.ErrIdentityNotFound
	}

	cred, err := m.credentials.GetCredential(ctx, SchemeID, identity.ID())
	if err != nil {
		return userbase.Outcome[bool]{}, err
	}
	hasUsername := cred != nil

	errs := userbase.NewFieldErrors(userbase.ValidationKind)
	conflicts := userbase.NewFieldErrors(userbase.ConflictKind)

	var username string
	if !hasUsername {
		username = m.validateUsername(errs, form)
	}
	name := m.validateName(errs, form)
	email := m.validateEmail(errs, form)

	if !hasUsername && !errs.Has(FieldUsername) {
		taken, err := m.taken(ctx, username, identity.ID())
		if err != nil {
			return userbase.Outcome[bool]{}, err
		}
		if taken {
			conflicts.Add(FieldUsername, msgUsernameTaken)
		}
	}
	if !errs.Has(FieldEmail) {
		taken, err := m.taken(ctx, email, identity.ID())
		if err != nil {
			return userbase.Outcome[bool]{}, err
		}
		if taken {
			conflicts.Add(FieldEmail, msgEmailTaken)
		}
	}

	changePass := !hasUsername
	if hasUsername && passwordChangeRequested(form) {
		changePass = true
		if err := m.hasher.ComparePasswordAndHash(form.Get(FieldCurrentPassword), cred.SecretHash); err != nil {
			if !errors.Is(err, userbase.ErrMismatchedHashAndPassword) {
				return userbase.Outcome[bool]{}, err
			}
			errs.Add(FieldCurrentPassword, msgWrongCurrentPass)
		}
	}

	if changePass {
		if form.Has(FieldPassword) && form.Has(FieldRepeatPassword) &&
			(form.Get(FieldPassword) != "" || form.Get(FieldRepeatPassword) != "") {
			m.validatePassword(errs, form)
		} else if hasUsername {
			errs.Add(FieldPassword, msgNewPasswordMissing)
		} else {
			errs.Add(FieldPassword, msgPasswordRequired)
		}
	}

	if !errs.Empty() {
		for _, field := range conflicts.FieldNames() {
			for _, message := range conflicts.Get(field) {
				errs.Add(field, message)
			}
		}
		return userbase.Reject[bool](errs), nil
	}
	if !conflicts.Empty() {
		return userbase.Reject[bool](conflicts), nil
	}

	var hash string
	if changePass {
		if hash, err = m.hasher.HashPassword(form.Get(FieldPassword)); err != nil {
			return userbase.Outcome[bool]{}, err
		}
	}

	err = m.tx.RunInTx(ctx, func(ctx context.Context) error {
		switch {
		case !hasUsername:
			err := m.credentials.AddCredential(ctx, userbase.Credential{
				IdentityID: identity.ID(),
				Scheme:     SchemeID,
				Handle:     username,
				SecretHash: hash,
				CreatedAt:  m.now().UTC(),
			})
			if err != nil {
				return err
			}
		case changePass:
			if err := m.credentials.UpdateSecret(ctx, SchemeID, identity.ID(), hash, cred.RequiresReset); err != nil {
				return err
			}
		}

		_, err := m.directory.UpdateProfile(ctx, identity.ID(), userbase.ProfileUpdate{
			Name:  &name,
			Email: &email,
		})
		return err
	})
	if err != nil {
		if userbase.IsDuplicate(err) {
			field, message := conflictField(err)
			return userbase.Reject[bool](userbase.NewFieldErrors(userbase.ConflictKind).Add(field, message)), nil
		}
		return userbase.Outcome[bool]{}, err
	}

	var warnings []error
	if changePass && hasUsername {
		warnings = append(warnings, m.record(ctx, userbase.ActivityUpdatePassword, identity.ID()))
	}
	if !hasUsername {
		warnings = append(warnings, m.record(ctx, userbase.ActivityAddedPassword, identity.ID()))
	}
	warnings = append(warnings, m.record(ctx, userbase.ActivityUpdateUserInfo, identity.ID()))

	return userbase.Succeed(true, warnings...), nil
}

// UpdateSecret implements userbase.AuthenticationModule. It is used by the
// password reset flow and clears the reset flag.
func (m *Module) UpdateSecret(ctx context.Context, identity userbase.Identity, form userbase.FormData) (userbase.Outcome[bool], error) {
	if identity == nil {
		return userbase.Outcome[bool]{}, userbase.ErrIdentityNotFound
	}

	errs := userbase.NewFieldErrors(userbase.ValidationKind)
	if form.Has(FieldPassword) || form.Has(FieldRepeatPassword) {
		m.validatePassword(errs, form)
	} else {
		errs.Add(FieldPassword, msgPasswordMissing)
	}
	if !errs.Empty() {
		return userbase.Reject[bool](errs), nil
	}

	hash, err := m.hasher.HashPassword(form.Get(FieldPassword))
	if err != nil {
		return userbase.Outcome[bool]{}, err
	}
	if err := m.credentials.UpdateSecret(ctx, SchemeID, identity.ID(), hash, false); err != nil {
		return userbase.Outcome[bool]{}, err
	}

	warning := m.record(ctx, userbase.ActivityResetPassword, identity.ID())
	return userbase.Succeed(true, warning), nil
}

// RequireReset implements userbase.SecretResetter.
func (m *Module) RequireReset(ctx context.Context, identityID string) error {
	return m.credentials.SetRequiresReset(ctx, SchemeID, identityID, true)
}

// taken reports whether value matches an identity other than selfID.
func (m *Module) taken(ctx context.Context, value, selfID string) (bool, error) {
	if value == "" {
		return false, nil
	}
	matches, err := m.directory.FindByEmailOrHandle(ctx, value)
	if err != nil {
		return false, err
	}
	for _, match := range matches {
		if match.ID() != selfID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Module) record(ctx context.Context, kind userbase.ActivityKind, identityID string) error {
	return userbase.RecordActivity(ctx, m.activitySink, m.logger, userbase.ActivityEvent{
		Kind:       kind,
		IdentityID: identityID,
		OccurredAt: m.now().UTC(),
	})
}

func passwordChangeRequested(form userbase.FormData) bool {
	if !form.Has(FieldCurrentPassword) || !form.Has(FieldPassword) || !form.Has(FieldRepeatPassword) {
		return false
	}
	return form.Get(FieldCurrentPassword) != "" ||
		form.Get(FieldPassword) != "" ||
		form.Get(FieldRepeatPassword) != ""
}

type noopTx struct{}

func (noopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
