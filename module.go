package userbase

import (
	"context"
	"strings"
	"sync"
)

// FormData holds submitted form fields. A field that was not submitted is
// different from a field submitted empty.
type FormData map[string]string

// Lookup returns the raw value and whether the field was submitted.
func (f FormData) Lookup(field string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f[field]
	return v, ok
}

// Has reports whether field was submitted.
func (f FormData) Has(field string) bool {
	_, ok := f.Lookup(field)
	return ok
}

// Get returns the raw value of field.
func (f FormData) Get(field string) string {
	v, _ := f.Lookup(field)
	return v
}

// Trimmed returns the value of field with surrounding space removed.
func (f FormData) Trimmed(field string) string {
	return strings.TrimSpace(f.Get(field))
}

// LoginResult is returned by Login and Register. Identity is nil when the
// credentials did not match.
type LoginResult struct {
	Identity      Identity
	Remember      bool
	RequiresReset bool
}

// Authenticated reports whether the result carries an identity.
func (r LoginResult) Authenticated() bool {
	return r.Identity != nil
}

// AuthenticationModule is implemented by every credential scheme.
type AuthenticationModule interface {
	ID() SchemeID
	Title() string
	// CredentialsFor returns nil, nil when identity never adopted the scheme.
	CredentialsFor(ctx context.Context, identity Identity) (*Credential, error)
	ConnectedUserCount(ctx context.Context) (int, error)
	DailyRegistrations(ctx context.Context) ([]DailyCount, error)
	Login(ctx context.Context, form FormData) (Outcome[LoginResult], error)
	Register(ctx context.Context, form FormData) (Outcome[LoginResult], error)
	EditProfile(ctx context.Context, identity Identity, form FormData) (Outcome[bool], error)
	UpdateSecret(ctx context.Context, identity Identity, form FormData) (Outcome[bool], error)
}

// LegendColorer is implemented by modules that want a fixed chart colour.
type LegendColorer interface {
	LegendColor() string
}

// SecretResetter is implemented by modules that support forced resets.
type SecretResetter interface {
	RequireReset(ctx context.Context, identityID string) error
}

// ModuleRegistry maps scheme ids to modules. It is filled at startup and
// only read afterwards.
type ModuleRegistry struct {
	mu      sync.RWMutex
	modules map[SchemeID]AuthenticationModule
	order   []SchemeID
}

// NewModuleRegistry returns a registry holding modules.
func NewModuleRegistry(modules ...AuthenticationModule) (*ModuleRegistry, error) {
	r := &ModuleRegistry{modules: map[SchemeID]AuthenticationModule{}}
	for _, m := range modules {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds module. Registering a second module with the same id fails.
func (r *ModuleRegistry) Register(module AuthenticationModule) error {
	if module == nil {
		return ErrSchemeNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.modules == nil {
		r.modules = map[SchemeID]AuthenticationModule{}
	}

	id := module.ID()
	if _, exists := r.modules[id]; exists {
		return ErrDuplicate
	}
	r.modules[id] = module
	r.order = append(r.order, id)
	return nil
}

// Get returns the module registered for id.
func (r *ModuleRegistry) Get(id SchemeID) (AuthenticationModule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[id]
	if !ok {
		return nil, ErrSchemeNotFound
	}
	return m, nil
}

// Modules returns the registered modules in registration order.
func (r *ModuleRegistry) Modules() []AuthenticationModule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AuthenticationModule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.modules[id])
	}
	return out
}

// AllowedSchemes returns the registered ids in registration order.
func (r *ModuleRegistry) AllowedSchemes() []SchemeID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SchemeID, len(r.order))
	copy(out, r.order)
	return out
}
