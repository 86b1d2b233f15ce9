package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
docmail:
  poll:
    attempts: 10
    interval_seconds: 5
  password: from-file
casbin:
  policies:
    - "client, mailing, create"
    - "admin, *, *"
jwt:
  audiences: docmailer,cli
  secret: c2VjcmV0
labels:
  team: billing
empty: ""
`

func TestViper_Getters(t *testing.T) {
	// Arrange
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	require.NoError(t, err)

	// Act and Assert
	assert.Equal(t, 10, cfg.GetInt("docmail.poll.attempts"))
	assert.Equal(t, 5*time.Second, cfg.GetSecond("docmail.poll.interval_seconds"))
	assert.Equal(t, 5*time.Minute, cfg.GetMinute("docmail.poll.interval_seconds"))
	assert.Equal(t, []string{"client, mailing, create", "admin, *, *"}, cfg.GetArray("casbin.policies"))
	assert.Equal(t, []string{"docmailer", "cli"}, cfg.GetArray("jwt.audiences"))
	assert.Equal(t, []byte("secret"), cfg.GetBinary("jwt.secret"))
	assert.Equal(t, map[string]string{"team": "billing"}, cfg.GetMap("labels"))
	assert.Empty(t, cfg.GetArray("empty"))
	assert.Nil(t, cfg.GetArray("missing"))
	assert.Nil(t, cfg.GetBinary("missing"))
	assert.NoError(t, cfg.Close())
}

func TestViper_EnvOverride(t *testing.T) {
	t.Setenv("DOCMAILER_DOCMAIL_PASSWORD", "from-env")
	t.Setenv("DOCMAILER_CASBIN_POLICIES", "client, mailing, read; admin, *, *")

	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.GetString("docmail.password"))
	assert.Equal(t, []string{"client, mailing, read", "admin, *, *"}, cfg.GetArray("casbin.policies"))
}

func TestNewViper_File(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(sampleYAML), 0o600))

	cfg, err := NewViper(file)

	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GetString("docmail.password"))
}

func TestNewViper_Missing(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
}

func TestNewViperFromBytes_NoType(t *testing.T) {
	_, err := NewViperFromBytes(" ", nil)

	require.Error(t, err)
}
