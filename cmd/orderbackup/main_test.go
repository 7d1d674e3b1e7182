package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbackup/internal/auth"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandListsSubcommands(t *testing.T) {
	cmd := newRootCommand()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "sync", "retry-failed", "migrate", "report", "token"} {
		assert.Contains(t, names, want)
	}
}

func TestTokenCommandSignsVerifiableToken(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: cli-secret\n  issuer: orderbackup-test\n")
	out, err := execute(t, "token", "--config", path, "--role", "operator", "--tokens", "shop-1, shop-2", "--ttl", "1h")
	require.NoError(t, err, out)

	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	claims, err := auth.JWT{Secret: []byte("cli-secret"), Issuer: "orderbackup-test"}.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleOperator, claims.Role)
	assert.Equal(t, []string{"shop-1", "shop-2"}, claims.TokenIDs)
	assert.Equal(t, "cli", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)
}

func TestTokenCommandRejections(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: cli-secret\n")
	_, err := execute(t, "token", "--config", path, "--role", "root")
	require.ErrorContains(t, err, "invalid role")

	_, err = execute(t, "token", "--config", path, "--role", "operator")
	require.ErrorContains(t, err, "--tokens")

	empty := writeConfig(t, "app:\n  env: dev\n")
	_, err = execute(t, "token", "--config", empty, "--role", "admin")
	require.ErrorContains(t, err, "jwt_secret")
}

func TestParseDateFlag(t *testing.T) {
	got, err := parseDateFlag("from", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDateFlag("from", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseDateFlag("to", "2026-03-01T12:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *got)

	_, err = parseDateFlag("to", "yesterday")
	require.ErrorContains(t, err, "--to")
}

func TestSyncCommandRequiresToken(t *testing.T) {
	_, err := execute(t, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}
