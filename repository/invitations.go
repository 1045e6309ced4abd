package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-userbase"
)

// Invitations implements userbase.InvitationStore using Bun.
type Invitations struct {
	db *bun.DB
}

var _ userbase.InvitationStore = (*Invitations)(nil)

// NewInvitations creates a new store.
func NewInvitations(db *bun.DB) *Invitations {
	return &Invitations{db: db}
}

var userColumn = bun.Ident("user")

// InsertInvitation implements userbase.InvitationStore.
func (r *Invitations) InsertInvitation(ctx context.Context, inv userbase.Invitation) error {
	_, err := conn(ctx, r.db).NewInsert().Model(invitationModel(inv)).Exec(ctx)
	return mapDuplicate(err, userbase.DuplicateFieldCode)
}

// GetInvitation implements userbase.InvitationStore.
func (r *Invitations) GetInvitation(ctx context.Context, code string) (*userbase.Invitation, error) {
	model := &InvitationModel{}
	err := conn(ctx, r.db).NewSelect().
		Model(model).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	inv := model.toInvitation()
	return &inv, nil
}

// ListUnsentInvitations implements userbase.InvitationStore.
func (r *Invitations) ListUnsentInvitations(ctx context.Context) ([]userbase.Invitation, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("is_admin_invite = ?", true).
			Where("sent_to_note IS NULL").
			Where("? IS NULL", userColumn)
	})
}

// ListSentInvitations implements userbase.InvitationStore.
func (r *Invitations) ListSentInvitations(ctx context.Context, filter userbase.AdminFilter) ([]userbase.Invitation, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.
			Where("sent_to_note IS NOT NULL").
			Where("? IS NULL", userColumn)
		return applyAdminFilter(q, filter)
	})
}

// ListAcceptedInvitations implements userbase.InvitationStore.
func (r *Invitations) ListAcceptedInvitations(ctx context.Context, filter userbase.AdminFilter) ([]userbase.Invitation, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("? IS NOT NULL", userColumn)
		return applyAdminFilter(q, filter)
	})
}

// UpdatePendingInvitation implements userbase.InvitationStore.
func (r *Invitations) UpdatePendingInvitation(ctx context.Context, inv userbase.Invitation) (bool, error) {
	model := invitationModel(inv)
	res, err := conn(ctx, r.db).NewUpdate().
		Model((*InvitationModel)(nil)).
		Set("sent_to_note = ?", model.SentToNote).
		Set("issuedby = ?", nullString(model.IssuedBy)).
		Set("is_admin_invite = ?", model.IsAdminInvite).
		Set("? = ?", userColumn, model.User).
		Where("code = ?", model.Code).
		Where("? IS NULL", userColumn).
		Where("(sent_to_note IS NULL OR ? IS NOT NULL)", model.SentToNote).
		Exec(ctx)
	return affected(res, err)
}

// DeletePendingInvitation implements userbase.InvitationStore.
func (r *Invitations) DeletePendingInvitation(ctx context.Context, code string) (bool, error) {
	res, err := conn(ctx, r.db).NewDelete().
		Model((*InvitationModel)(nil)).
		Where("code = ?", code).
		Where("? IS NULL", userColumn).
		Exec(ctx)
	return affected(res, err)
}

// AcceptInvitation implements userbase.InvitationStore. The conditions make
// the write a compare-and-set: a second acceptor matches no row.
func (r *Invitations) AcceptInvitation(ctx context.Context, code, identityID string) (bool, error) {
	res, err := conn(ctx, r.db).NewUpdate().
		Model((*InvitationModel)(nil)).
		Set("? = ?", userColumn, identityID).
		Where("code = ?", code).
		Where("? IS NULL", userColumn).
		Where("sent_to_note IS NOT NULL").
		Exec(ctx)
	return affected(res, err)
}

func (r *Invitations) list(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]userbase.Invitation, error) {
	var models []InvitationModel
	q := conn(ctx, r.db).NewSelect().Model(&models)
	err := filter(q).OrderExpr("created ASC, code ASC").Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	out := make([]userbase.Invitation, 0, len(models))
	for i := range models {
		out = append(out, models[i].toInvitation())
	}
	return out, nil
}

func applyAdminFilter(q *bun.SelectQuery, filter userbase.AdminFilter) *bun.SelectQuery {
	switch filter {
	case userbase.AdminOnly:
		return q.Where("is_admin_invite = ?", true)
	case userbase.UserOnly:
		return q.Where("is_admin_invite = ?", false)
	default:
		return q
	}
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
