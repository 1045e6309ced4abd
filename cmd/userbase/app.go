package main

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-userbase"
	"github.com/goliatone/go-userbase/repository"
	"github.com/goliatone/go-userbase/sessionstore"
	"github.com/goliatone/go-userbase/usernamepass"
)

// cliActor is recorded as the actor of every change made from the CLI.
var cliActor = userbase.ActorRef{ID: "cli", Type: userbase.ActorTypeSystem}

type app struct {
	settings userbase.Settings
	format   string
	logger   *glog.BaseLogger
	db       *bun.DB
	repo     *repository.Manager
	sessions userbase.SessionStore
	service  *userbase.Service
	closers  []func() error
}

// loggerProvider scopes the CLI logger for the services.
type loggerProvider struct {
	base *glog.BaseLogger
}

func (p loggerProvider) GetLogger(name string) userbase.Logger {
	return p.base.GetLogger(name)
}

func newLogger(verbose bool) *glog.BaseLogger {
	if verbose {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("userbase"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("userbase"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}

// openDB picks the bun dialect from the DSN scheme. Anything that is not
// a postgres URL is handed to the sqlite driver.
func openDB(dsn string) (*bun.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// loadApp reads the settings and wires the stores and the service.
func loadApp(ctx context.Context, opts *RootOptions) (*app, error) {
	settings, err := userbase.LoadSettings()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid settings", err)
	}
	if opts.DSN != "" {
		settings.DatabaseDSN = opts.DSN
	}

	verbose := opts.Verbose
	switch strings.ToLower(settings.LogLevel) {
	case "trace", "debug":
		verbose = true
	}

	a, err := buildApp(ctx, settings, newLogger(verbose))
	if err != nil {
		return nil, err
	}
	a.format = opts.Format
	return a, nil
}

// withApp loads the app for cmd, runs fn and releases the handles.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(a *app) error) error {
	a, err := loadApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func buildApp(ctx context.Context, settings userbase.Settings, logger *glog.BaseLogger) (*app, error) {
	db, err := openDB(settings.DatabaseDSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database",
			errors.Wrap(err, errors.CategoryInternal, "could not open database"))
	}

	a := &app{
		settings: settings,
		format:   FormatYAML,
		logger:   logger,
		db:       db,
		closers:  []func() error{db.Close},
	}

	a.repo = repository.NewManager(db)
	a.repo.MustValidate()

	if settings.RedisAddr != "" {
		client, err := sessionstore.Dial(ctx, settings.RedisAddr, "")
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "connect redis",
				errors.Wrap(err, errors.CategoryInternal, "could not reach session store"))
		}
		a.closers = append(a.closers, client.Close)
		a.sessions = sessionstore.NewRedis(client, sessionstore.WithPrefix(settings.SessionPrefix))
	} else {
		a.sessions = sessionstore.NewMemory(time.Minute)
	}

	provider := loggerProvider{base: logger}
	directory := a.repo.Directory()
	sink := userbase.DirectorySink(directory)

	upass := usernamepass.New(directory, directory,
		usernamepass.WithHasher(userbase.NewBcryptHasher(settings.BcryptCost)),
		usernamepass.WithPolicy(settings.Policy()),
		usernamepass.WithTxRunner(a.repo),
		usernamepass.WithActivitySink(sink),
		usernamepass.WithLoggerProvider(provider),
	)

	registry, err := userbase.NewModuleRegistry(upass)
	if err != nil {
		a.Close()
		return nil, err
	}

	ledger := userbase.NewInvitationLedger(a.repo.Invitations(),
		userbase.WithCodeGenerationAttempts(settings.CodeGenerationAttempts),
		userbase.WithLedgerActivitySink(sink),
		userbase.WithLedgerLoggerProvider(provider),
	)

	coordinator := userbase.NewSessionCoordinator(settings, a.sessions,
		userbase.WithSessionDirectory(directory),
		userbase.WithAdminCapability(userbase.DirectoryRoleCapability(directory, userbase.RoleAdmin)),
		userbase.WithSessionActivitySink(sink),
		userbase.WithSessionLoggerProvider(provider),
	)

	a.service = userbase.NewService(registry, ledger, coordinator, directory,
		userbase.WithTxRunner(a.repo),
		userbase.WithPolicy(settings.Policy()),
		userbase.WithServiceLoggerProvider(provider),
	)

	return a, nil
}

// Context returns ctx tagged with the CLI actor.
func (a *app) Context(ctx context.Context) context.Context {
	return userbase.WithActor(ctx, cliActor)
}

// Fail logs err with its rich attributes and wraps it with an exit code.
func (a *app) Fail(message string, err error) error {
	a.logger.GetLogger("cli").Error(message, "error", err)
	code := ExitFailure
	if errors.IsCategory(err, errors.CategoryInternal) {
		code = ExitCommandError
	}
	return WrapExitError(code, message, err)
}

// Close releases the database and session store handles.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}
