package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-userbase"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "userbase.db")
	t.Setenv("USERBASE_SIGNING_KEY", "cli-test-key")
	t.Setenv("USERBASE_DATABASE_DSN", dsn)
	t.Setenv("USERBASE_REDIS_ADDR", "")
	t.Setenv("USERBASE_BCRYPT_COST", "4")
	return dsn
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "userbase", cmd.Use)

	commands := [][]string{
		{"migrate"},
		{"invitations", "generate"},
		{"invitations", "list"},
		{"invitations", "send"},
		{"invitations", "cancel"},
		{"users", "stats"},
		{"users", "role"},
		{"users", "require-reset"},
		{"sessions", "revoke"},
	}
	for _, path := range commands {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, FormatYAML, format.DefValue)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	require.NotNil(t, cmd.PersistentFlags().Lookup("dsn"))
}

func TestInvalidFormat(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "--format", "xml", "users", "stats")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerateRejectsBadCount(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "invitations", "generate", "zero")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvitationLifecycle(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated: true")

	out, err = execute(t, "invitations", "generate", "3")
	require.NoError(t, err)

	var generated []userbase.Invitation
	require.NoError(t, yaml.Unmarshal([]byte(out), &generated))
	require.Len(t, generated, 3)
	for _, inv := range generated {
		assert.True(t, userbase.IsWellFormedCode(inv.Code))
		assert.True(t, inv.IsAdminInvite)
	}

	out, err = execute(t, "--format", "json", "invitations", "list", "unsent")
	require.NoError(t, err)

	var unsent []userbase.Invitation
	require.NoError(t, json.Unmarshal([]byte(out), &unsent))
	assert.Len(t, unsent, 3)

	code := generated[0].Code
	out, err = execute(t, "invitations", "send", code, "for the design team")
	require.NoError(t, err)

	var sent userbase.Invitation
	require.NoError(t, yaml.Unmarshal([]byte(out), &sent))
	require.NotNil(t, sent.Note)
	assert.Equal(t, "for the design team", *sent.Note)

	out, err = execute(t, "invitations", "list", "sent", "--filter", "admin")
	require.NoError(t, err)

	var listed []userbase.Invitation
	require.NoError(t, yaml.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, code, listed[0].Code)

	_, err = execute(t, "invitations", "cancel", code)
	require.NoError(t, err)

	out, err = execute(t, "invitations", "list", "sent")
	require.NoError(t, err)
	listed = nil
	require.NoError(t, yaml.Unmarshal([]byte(out), &listed))
	assert.Empty(t, listed)
}

func TestListRejectsBadFilter(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "invitations", "list", "sent", "--filter", "robots")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUsersCommands(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "migrate")
	require.NoError(t, err)

	out, err := execute(t, "users", "stats")
	require.NoError(t, err)

	var stats []userbase.SchemeStats
	require.NoError(t, yaml.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, userbase.SchemeID("userpass"), stats[0].Scheme)
	assert.Zero(t, stats[0].ConnectedUsers)

	_, err = execute(t, "users", "role", "3f1c1f86-9d59-4f8f-9a57-7b0c7dd0e001", "wizard")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "users", "role", "3f1c1f86-9d59-4f8f-9a57-7b0c7dd0e001", "admin")
	require.Error(t, err)
	assert.ErrorIs(t, err, userbase.ErrIdentityNotFound)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
