// Package config loads the settings of the rr CLI and the MCP server from
// environment variables.
package config

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/usestring/raceresult-go/internal/logging"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
)

// Config holds the settings shared by the commands.
type Config struct {
	Server     string        // RR_SERVER, default "events.raceresult.com"
	HTTPS      bool          // RR_HTTPS, default true
	Timeout    time.Duration // RR_TIMEOUT_MS, default 30000ms
	UserAgent  string        // RR_USER_AGENT, default client.DefaultUserAgent
	SessionID  string        // RR_SESSION, reuse an existing session instead of logging in
	APIKey     string        // RR_API_KEY
	User       string        // RR_USER
	Password   string        // RR_PASSWORD
	TOTP       string        // RR_TOTP
	SignInAs   string        // RR_SIGN_IN_AS
	EventID    string        // RR_EVENT, default event for event commands
	SchemaFile string        // RR_SCHEMA_FILE, extra table schemas (YAML or JSON)

	ScanWorkers  int // RR_SCAN_WORKERS, default query.DefaultScanWorkers
	ScanPageSize int // RR_SCAN_PAGE_SIZE, default query.DefaultPageSize
	JQCacheSize  int // JQ_CACHE_SIZE, default 128
	MaxRows      int // RR_MAX_ROWS, default 1000, cap for MCP list results

	Log logging.Config // LOG_LEVEL, LOG_FORMAT, LOG_FILE, LOG_MAX_SIZE_MB, ...
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Server:     getEnvString("RR_SERVER", client.DefaultServer),
		HTTPS:      getEnvBool("RR_HTTPS", true),
		Timeout:    getEnvDurationMs("RR_TIMEOUT_MS", 30000),
		UserAgent:  getEnvString("RR_USER_AGENT", client.DefaultUserAgent),
		SessionID:  getEnvString("RR_SESSION", ""),
		APIKey:     getEnvString("RR_API_KEY", ""),
		User:       getEnvString("RR_USER", ""),
		Password:   getEnvString("RR_PASSWORD", ""),
		TOTP:       getEnvString("RR_TOTP", ""),
		SignInAs:   getEnvString("RR_SIGN_IN_AS", ""),
		EventID:    getEnvString("RR_EVENT", ""),
		SchemaFile: getEnvString("RR_SCHEMA_FILE", ""),

		ScanWorkers:  getEnvInt("RR_SCAN_WORKERS", query.DefaultScanWorkers),
		ScanPageSize: getEnvInt("RR_SCAN_PAGE_SIZE", query.DefaultPageSize),
		JQCacheSize:  getEnvInt("JQ_CACHE_SIZE", 128),
		MaxRows:      getEnvInt("RR_MAX_ROWS", 1000),

		Log: logging.Config{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Format:     getEnvString("LOG_FORMAT", "text"),
			FilePath:   getEnvString("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
	}
}

// ErrNoCredentials is returned by Credentials when neither an API key nor a
// user is configured.
var ErrNoCredentials = errors.New("no credentials: set RR_API_KEY or RR_USER and RR_PASSWORD")

// Credentials returns the configured login credentials. An API key wins
// over user and password.
func (c *Config) Credentials() (client.Credentials, error) {
	switch {
	case c.APIKey != "":
		return client.APIKey{Key: c.APIKey}, nil
	case c.User != "" && c.TOTP != "":
		return client.UserPasswordTOTP{User: c.User, Password: c.Password, Code: c.TOTP}, nil
	case c.User != "":
		return client.UserPassword{User: c.User, Password: c.Password}, nil
	}
	return nil, ErrNoCredentials
}

// LoginOptions returns the options passed to Login.
func (c *Config) LoginOptions() []client.LoginOption {
	if c.SignInAs == "" {
		return nil
	}
	return []client.LoginOption{client.WithSignInAs(c.SignInAs)}
}

// NewClient builds a client for the configured server. It does not log in.
func (c *Config) NewClient() *client.Client {
	return client.New(
		client.WithServer(c.Server, c.HTTPS),
		client.WithHTTPClient(&http.Client{Timeout: c.Timeout}),
		client.WithUserAgent(c.UserAgent),
		client.WithSession(c.SessionID),
	)
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
