package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/florianilch/xsolla-sdk/internal/apierror"
	"github.com/florianilch/xsolla-sdk/internal/tokenstore"
)

func noEnv() []string { return nil }

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", nil, noEnv)
	require.NoError(t, err)

	require.Equal(t, TokenStorageTypeKeyring, cfg.Auth.Storage)
	require.Equal(t, "https://login.xsolla.com/api", cfg.Login.BaseURL)
	require.Equal(t, []string{"offline"}, cfg.Login.Scopes)
	require.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	require.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfigLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[auth]
storage = "file"
file_path = "/tmp/from-file"

[login]
client_id = "1234"
project_id = "file-project"

[store]
project_id = "44056"

[http]
timeout = "5s"

[log]
level = "debug"

[[classification]]
status = 401
code = "custom-expired"
class = "token_expired"
`), 0o600))

	environ := func() []string {
		return []string{
			"XSOLLA_LOGIN__PROJECT_ID=env-project",
			"XSOLLA_LOGIN__SCOPES=offline email",
			"XSOLLA_REFRESH_TOKEN=ignored",
			"HOME=/root",
		}
	}
	overrides := map[string]any{"log.level": "warn"}

	cfg, err := LoadConfig(path, overrides, environ)
	require.NoError(t, err)

	require.Equal(t, TokenStorageTypeFile, cfg.Auth.Storage)
	require.Equal(t, "/tmp/from-file", cfg.Auth.FilePath)
	require.Equal(t, "1234", cfg.Login.ClientID)
	require.Equal(t, "env-project", cfg.Login.ProjectID)
	require.Equal(t, []string{"offline", "email"}, cfg.Login.Scopes)
	require.Equal(t, "44056", cfg.Store.ProjectID)
	require.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	require.Equal(t, "warn", cfg.Log.Level)

	table, err := cfg.ClassificationTable()
	require.NoError(t, err)
	require.Equal(t, apierror.ClassTokenExpired,
		table.Classify(&apierror.Failure{Status: 401, Code: "custom-expired"}))
	require.Len(t, table, len(apierror.DefaultTable)+1)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{name: "unknown storage", overrides: map[string]any{"auth.storage": "s3"}},
		{name: "file storage without path", overrides: map[string]any{"auth.storage": "file", "auth.file_path": ""}},
		{name: "invalid url", overrides: map[string]any{"store.base_url": "not a url"}},
		{name: "unknown log format", overrides: map[string]any{"log.format": "xml"}},
		{name: "zero timeout", overrides: map[string]any{"http.timeout": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig("", tt.overrides, noEnv)
			require.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestClassificationTableRejectsUnknownClass(t *testing.T) {
	cfg := &Config{Classification: []ClassificationRule{{Status: 401, Code: "x", Class: "fatal"}}}
	_, err := cfg.ClassificationTable()
	require.Error(t, err)
}

func TestNewTokenStore(t *testing.T) {
	store, err := AuthConfig{Storage: TokenStorageTypeFile, FilePath: "/tmp/token"}.NewTokenStore()
	require.NoError(t, err)
	require.IsType(t, &tokenstore.FileStore{}, store)

	store, err = AuthConfig{Storage: TokenStorageTypeKeyring, KeyringService: "s", KeyringUser: "u"}.NewTokenStore()
	require.NoError(t, err)
	require.IsType(t, &tokenstore.KeyringStore{}, store)

	store, err = AuthConfig{Storage: TokenStorageTypeEnv, EnvVar: "TOKEN"}.NewTokenStore()
	require.NoError(t, err)
	require.IsType(t, &tokenstore.EnvStore{}, store)

	_, err = AuthConfig{Storage: "s3"}.NewTokenStore()
	require.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "WARN"}}
	level, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, "WARN", level.String())
}
