package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/raceresult-go/pkg/client"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"RR_SERVER", "RR_HTTPS", "RR_TIMEOUT_MS", "RR_API_KEY", "RR_USER", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, client.DefaultServer, cfg.Server)
	assert.True(t, cfg.HTTPS)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "text", cfg.Log.Format)

	_, err := cfg.Credentials()
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("RR_SERVER", "rr.local:8080")
	t.Setenv("RR_HTTPS", "off")
	t.Setenv("RR_TIMEOUT_MS", "1500")
	t.Setenv("RR_SCAN_WORKERS", "not-a-number")
	t.Setenv("RR_USER", "alice")
	t.Setenv("RR_PASSWORD", "secret")
	t.Setenv("RR_TOTP", "123456")
	t.Setenv("RR_SIGN_IN_AS", "carol")

	cfg := Load()
	assert.False(t, cfg.HTTPS)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 4, cfg.ScanWorkers, "invalid ints fall back to the default")
	assert.Len(t, cfg.LoginOptions(), 1)
	assert.Equal(t, "http://rr.local:8080", cfg.NewClient().BaseURL())

	creds, err := cfg.Credentials()
	require.NoError(t, err)
	assert.Equal(t, client.UserPasswordTOTP{User: "alice", Password: "secret", Code: "123456"}, creds)

	t.Setenv("RR_API_KEY", "k")
	creds, err = Load().Credentials()
	require.NoError(t, err)
	assert.Equal(t, client.APIKey{Key: "k"}, creds)
}
