package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

type txKey struct{}

// Manager owns the database handle, hands out the stores and runs
// transactions that the stores pick up from the context.
type Manager struct {
	db          *bun.DB
	directory   *Directory
	invitations *Invitations
}

// NewManager returns a manager over db.
func NewManager(db *bun.DB, opts ...DirectoryOption) *Manager {
	m := &Manager{db: db}
	m.directory = NewDirectory(db, opts...)
	m.invitations = NewInvitations(db)
	return m
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}
	if m.directory == nil {
		return errors.New("repository directory should be initialized")
	}
	if m.invitations == nil {
		return errors.New("repository invitations should be initialized")
	}
	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// DB returns the underlying handle.
func (m *Manager) DB() *bun.DB {
	return m.db
}

// Directory returns the identity and credential store.
func (m *Manager) Directory() *Directory {
	return m.directory
}

// Invitations returns the invitation store.
func (m *Manager) Invitations() *Invitations {
	return m.invitations
}

// RunInTx runs fn in a transaction carried by the context it receives.
// Nested calls join the outer transaction.
func (m *Manager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return runInTx(ctx, m.db, fn)
}

func runInTx(ctx context.Context, db *bun.DB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return fn(ctx)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
	}
}

// conn returns the transaction in ctx or db.
func conn(ctx context.Context, db *bun.DB) bun.IDB {
	if tx, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return tx
	}
	return db
}

// CreateSchema creates the tables and unique indexes when missing.
func (m *Manager) CreateSchema(ctx context.Context) error {
	models := []any{
		(*UserModel)(nil),
		(*CredentialModel)(nil),
		(*InvitationModel)(nil),
		(*ActivityModel)(nil),
	}

	return m.RunInTx(ctx, func(ctx context.Context) error {
		db := conn(ctx, m.db)
		for _, model := range models {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		_, err := db.NewCreateIndex().
			Model((*CredentialModel)(nil)).
			Index(credentialHandleIndex).
			Unique().
			IfNotExists().
			Column("scheme", "handle").
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateIndex().
			Model((*UserModel)(nil)).
			Index(userEmailIndex).
			Unique().
			IfNotExists().
			ColumnExpr("LOWER(email)").
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateIndex().
			Model((*ActivityModel)(nil)).
			Index("activity_object_idx").
			IfNotExists().
			Column("object_id", "occurred_at").
			Exec(ctx)
		return err
	})
}
