package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	bunrepo "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-userbase"
	"github.com/goliatone/go-userbase/activitymap"
)

// Directory implements userbase.IdentityDirectory and
// userbase.CredentialStore on top of Bun.
type Directory struct {
	db          *bun.DB
	users       bunrepo.Repository[*UserModel]
	defaultRole string
	hashedIDs   bool
	now         func() time.Time
}

var (
	_ userbase.IdentityDirectory = (*Directory)(nil)
	_ userbase.CredentialStore   = (*Directory)(nil)
)

// DirectoryOption customizes the directory.
type DirectoryOption func(*Directory)

// WithDefaultRole sets the role given to new identities.
func WithDefaultRole(role string) DirectoryOption {
	return func(d *Directory) {
		if role != "" {
			d.defaultRole = role
		}
	}
}

// WithHashedIDs derives identity ids from the email address so the same
// address maps to the same id across environments.
func WithHashedIDs() DirectoryOption {
	return func(d *Directory) {
		d.hashedIDs = true
	}
}

// WithDirectoryClock injects a clock.
func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDirectory returns a directory over db.
func NewDirectory(db *bun.DB, opts ...DirectoryOption) *Directory {
	d := &Directory{
		db:          db,
		defaultRole: string(userbase.RoleMember),
		now:         time.Now,
	}
	d.users = bunrepo.NewRepository[*UserModel](db, bunrepo.ModelHandlers[*UserModel]{
		NewRecord: func() *UserModel { return &UserModel{} },
		GetID: func(u *UserModel) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *UserModel, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// CreateIdentity inserts the identity and its first credential in one
// transaction.
func (d *Directory) CreateIdentity(ctx context.Context, record userbase.NewIdentityRecord) (userbase.Identity, error) {
	now := record.CreatedAt
	if now.IsZero() {
		now = d.now()
	}
	now = now.UTC()

	user := &UserModel{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(record.Name),
		Email:     strings.TrimSpace(record.Email),
		Role:      d.defaultRole,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if d.hashedIDs {
		if id, err := hashid.NewUUID(strings.ToLower(user.Email)); err == nil {
			user.ID = id
		}
	}

	err := runInTx(ctx, d.db, func(ctx context.Context) error {
		tx := conn(ctx, d.db)

		created, err := d.users.CreateTx(ctx, tx, user)
		if err != nil {
			return mapDuplicate(err, userbase.DuplicateFieldEmail)
		}
		if created != nil {
			user = created
		}

		if record.Scheme == "" {
			return nil
		}

		_, err = tx.NewInsert().Model(&CredentialModel{
			IdentityID: user.ID,
			Scheme:     string(record.Scheme),
			Handle:     record.Handle,
			SecretHash: record.SecretHash,
			CreatedAt:  now,
			UpdatedAt:  now,
		}).Exec(ctx)
		return mapDuplicate(err, userbase.DuplicateFieldHandle)
	})
	if err != nil {
		return nil, err
	}

	return user.toIdentity(), nil
}

// GetIdentity returns userbase.ErrIdentityNotFound for unknown ids.
func (d *Directory) GetIdentity(ctx context.Context, id string) (userbase.Identity, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, userbase.ErrIdentityNotFound
	}

	user := &UserModel{}
	err = conn(ctx, d.db).NewSelect().Model(user).Where("?TableAlias.id = ?", uid).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userbase.ErrIdentityNotFound
		}
		return nil, err
	}
	return user.toIdentity(), nil
}

// FindByEmailOrHandle matches value against email addresses, case
// insensitively, and against credential handles of every scheme.
func (d *Directory) FindByEmailOrHandle(ctx context.Context, value string) ([]userbase.Identity, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	db := conn(ctx, d.db)

	var byEmail []UserModel
	err := db.NewSelect().
		Model(&byEmail).
		Where("LOWER(?TableAlias.email) = LOWER(?)", value).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var byHandle []UserModel
	err = db.NewSelect().
		Model(&byHandle).
		Where("usr.id IN (?)", db.NewSelect().
			Model((*CredentialModel)(nil)).
			Column("identity_id").
			Where("LOWER(handle) = LOWER(?)", value)).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	seen := map[uuid.UUID]struct{}{}
	out := make([]userbase.Identity, 0, len(byEmail)+len(byHandle))
	for _, group := range [][]UserModel{byEmail, byHandle} {
		for i := range group {
			if _, ok := seen[group[i].ID]; ok {
				continue
			}
			seen[group[i].ID] = struct{}{}
			out = append(out, group[i].toIdentity())
		}
	}
	return out, nil
}

// UpdateProfile writes the non nil fields of update.
func (d *Directory) UpdateProfile(ctx context.Context, id string, update userbase.ProfileUpdate) (userbase.Identity, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, userbase.ErrIdentityNotFound
	}

	q := conn(ctx, d.db).NewUpdate().
		Model((*UserModel)(nil)).
		Set("updated_at = ?", d.now().UTC()).
		Where("id = ?", uid)
	if update.Name != nil {
		q = q.Set("name = ?", strings.TrimSpace(*update.Name))
	}
	if update.Email != nil {
		q = q.Set("email = ?", strings.TrimSpace(*update.Email))
	}
	if update.EmailVerified != nil {
		q = q.Set("is_email_verified = ?", *update.EmailVerified)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, mapDuplicate(err, userbase.DuplicateFieldEmail)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, userbase.ErrIdentityNotFound
	}

	return d.GetIdentity(ctx, id)
}

// SetRole changes the role of id. Roles feed the admin capability check.
func (d *Directory) SetRole(ctx context.Context, id string, role userbase.UserRole) error {
	if !role.IsValid() {
		return userbase.ErrInvalidRole
	}
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return userbase.ErrIdentityNotFound
	}

	res, err := conn(ctx, d.db).NewUpdate().
		Model((*UserModel)(nil)).
		Set("user_role = ?", string(role)).
		Set("updated_at = ?", d.now().UTC()).
		Where("id = ?", uid).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return userbase.ErrIdentityNotFound
	}
	return nil
}

// RecordActivity stores event as a normalized activity row.
func (d *Directory) RecordActivity(ctx context.Context, event userbase.ActivityEvent) error {
	normalized := activitymap.Normalize(event)
	_, err := conn(ctx, d.db).NewInsert().Model(&ActivityModel{
		ID:         uuid.New(),
		ActorID:    normalized.ActorID,
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Metadata:   normalized.Metadata,
		OccurredAt: normalized.OccurredAt,
	}).Exec(ctx)
	return err
}

// Activity returns the activity rows recorded for identityID, oldest first.
func (d *Directory) Activity(ctx context.Context, identityID string) ([]activitymap.Normalized, error) {
	var rows []ActivityModel
	err := conn(ctx, d.db).NewSelect().
		Model(&rows).
		Where("object_id = ?", identityID).
		OrderExpr("occurred_at ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	out := make([]activitymap.Normalized, 0, len(rows))
	for _, row := range rows {
		out = append(out, activitymap.Normalized{
			ActorID:    row.ActorID,
			Verb:       row.Verb,
			ObjectType: row.ObjectType,
			ObjectID:   row.ObjectID,
			Channel:    row.Channel,
			Metadata:   row.Metadata,
			OccurredAt: row.OccurredAt,
		})
	}
	return out, nil
}

// GetCredential returns nil, nil when the identity has no credential for
// scheme.
func (d *Directory) GetCredential(ctx context.Context, scheme userbase.SchemeID, identityID string) (*userbase.Credential, error) {
	uid, err := uuid.Parse(strings.TrimSpace(identityID))
	if err != nil {
		return nil, nil
	}

	model := &CredentialModel{}
	err = conn(ctx, d.db).NewSelect().
		Model(model).
		Where("scheme = ? AND identity_id = ?", string(scheme), uid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return model.toCredential(), nil
}

// FindCredentialByHandle returns nil, nil when no credential of scheme uses
// handle.
func (d *Directory) FindCredentialByHandle(ctx context.Context, scheme userbase.SchemeID, handle string) (*userbase.Credential, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, nil
	}

	model := &CredentialModel{}
	err := conn(ctx, d.db).NewSelect().
		Model(model).
		Where("scheme = ? AND handle = ?", string(scheme), handle).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return model.toCredential(), nil
}

// AddCredential attaches credential to an existing identity.
func (d *Directory) AddCredential(ctx context.Context, credential userbase.Credential) error {
	uid, err := uuid.Parse(strings.TrimSpace(credential.IdentityID))
	if err != nil {
		return userbase.ErrIdentityNotFound
	}

	now := d.now().UTC()
	created := credential.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err = conn(ctx, d.db).NewInsert().Model(&CredentialModel{
		IdentityID:    uid,
		Scheme:        string(credential.Scheme),
		Handle:        credential.Handle,
		SecretHash:    credential.SecretHash,
		RequiresReset: credential.RequiresReset,
		CreatedAt:     created,
		UpdatedAt:     now,
	}).Exec(ctx)
	return mapDuplicate(err, userbase.DuplicateFieldHandle)
}

// UpdateSecret replaces the secret and reset flag. The handle is left as is.
func (d *Directory) UpdateSecret(ctx context.Context, scheme userbase.SchemeID, identityID, secretHash string, requiresReset bool) error {
	return d.updateCredential(ctx, scheme, identityID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("secret_hash = ?", secretHash).Set("requires_reset = ?", requiresReset)
	})
}

// SetRequiresReset flips the reset flag of a credential.
func (d *Directory) SetRequiresReset(ctx context.Context, scheme userbase.SchemeID, identityID string, requiresReset bool) error {
	return d.updateCredential(ctx, scheme, identityID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("requires_reset = ?", requiresReset)
	})
}

func (d *Directory) updateCredential(ctx context.Context, scheme userbase.SchemeID, identityID string, set func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	uid, err := uuid.Parse(strings.TrimSpace(identityID))
	if err != nil {
		return userbase.ErrIdentityNotFound
	}

	q := conn(ctx, d.db).NewUpdate().
		Model((*CredentialModel)(nil)).
		Set("updated_at = ?", d.now().UTC()).
		Where("scheme = ? AND identity_id = ?", string(scheme), uid)

	res, err := set(q).Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return userbase.ErrIdentityNotFound
	}
	return nil
}

// CountCredentials returns how many identities use scheme.
func (d *Directory) CountCredentials(ctx context.Context, scheme userbase.SchemeID) (int, error) {
	return conn(ctx, d.db).NewSelect().
		Model((*CredentialModel)(nil)).
		Where("scheme = ?", string(scheme)).
		Count(ctx)
}

// DailyRegistrations buckets credential creation per UTC day, oldest first.
func (d *Directory) DailyRegistrations(ctx context.Context, scheme userbase.SchemeID) ([]userbase.DailyCount, error) {
	var rows []CredentialModel
	err := conn(ctx, d.db).NewSelect().
		Model(&rows).
		Column("created_at").
		Where("scheme = ?", string(scheme)).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	counts := map[time.Time]int{}
	for _, row := range rows {
		t := row.CreatedAt.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		counts[day]++
	}

	out := make([]userbase.DailyCount, 0, len(counts))
	for day, count := range counts {
		out = append(out, userbase.DailyCount{Day: day, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Day.Before(out[j].Day)
	})
	return out, nil
}
