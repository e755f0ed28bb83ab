package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/florianilch/xsolla-sdk/internal/apierror"
	"github.com/florianilch/xsolla-sdk/internal/tokensource"
	"github.com/florianilch/xsolla-sdk/internal/tokenstore"
	"github.com/florianilch/xsolla-sdk/internal/xsolla"
)

// EnvPrefix is the prefix of environment variables read into the config.
// Nested keys are separated by a double underscore:
// XSOLLA_LOGIN__CLIENT_ID sets login.client_id.
const EnvPrefix = "XSOLLA_"

// Token storage backends.
const (
	TokenStorageTypeFile    = "file"
	TokenStorageTypeKeyring = "keyring"
	TokenStorageTypeEnv     = "env"
)

// Config is the complete application configuration.
type Config struct {
	Auth           AuthConfig           `koanf:"auth"`
	Login          LoginConfig          `koanf:"login"`
	Store          StoreConfig          `koanf:"store"`
	HTTP           HTTPConfig           `koanf:"http"`
	Log            LogConfig            `koanf:"log"`
	Classification []ClassificationRule `koanf:"classification" validate:"dive"`
}

// AuthConfig selects where the refresh credential is persisted.
type AuthConfig struct {
	Storage        string `koanf:"storage" validate:"required,oneof=file keyring env"`
	FilePath       string `koanf:"file_path" validate:"required_if=Storage file"`
	KeyringService string `koanf:"keyring_service" validate:"required_if=Storage keyring"`
	KeyringUser    string `koanf:"keyring_user" validate:"required_if=Storage keyring"`
	EnvVar         string `koanf:"env_var" validate:"required_if=Storage env"`
}

// LoginConfig describes the Xsolla Login project.
type LoginConfig struct {
	ClientID    string   `koanf:"client_id"`
	ProjectID   string   `koanf:"project_id"`
	BaseURL     string   `koanf:"base_url" validate:"required,url"`
	AuthURL     string   `koanf:"auth_url" validate:"required,url"`
	TokenURL    string   `koanf:"token_url" validate:"required,url"`
	PasswordURL string   `koanf:"password_url" validate:"required,url"`
	RedirectURL string   `koanf:"redirect_url" validate:"required,url"`
	Scopes      []string `koanf:"scopes"`
}

// StoreConfig describes the Xsolla Store project.
type StoreConfig struct {
	ProjectID string `koanf:"project_id"`
	BaseURL   string `koanf:"base_url" validate:"required,url"`
}

// HTTPConfig tunes outbound requests.
type HTTPConfig struct {
	Timeout        time.Duration `koanf:"timeout" validate:"gt=0"`
	RefreshTimeout time.Duration `koanf:"refresh_timeout" validate:"gt=0"`
}

// LogConfig configures observability.Instrument.
type LogConfig struct {
	Level  string `koanf:"level" validate:"required,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `koanf:"format" validate:"required,oneof=text json otel otlp-http otlp-grpc"`
}

// ClassificationRule adds a project-specific error classification rule.
// Status -1 and Code "*" match anything.
type ClassificationRule struct {
	Status int    `koanf:"status" validate:"gte=-1,lte=599"`
	Code   string `koanf:"code" validate:"required"`
	Class  string `koanf:"class" validate:"required,oneof=domain transient token_expired token_invalid"`
}

// DefaultConfig returns the built-in defaults as a flat koanf map.
func DefaultConfig() map[string]any {
	return map[string]any{
		"auth.storage":         TokenStorageTypeKeyring,
		"auth.file_path":       defaultTokenFile(),
		"auth.keyring_service": "xsolla-sdk",
		"auth.keyring_user":    "refresh_token",
		"auth.env_var":         "XSOLLA_REFRESH_TOKEN",
		"login.base_url":       xsolla.DefaultLoginBaseURL,
		"login.auth_url":       tokensource.Endpoint.AuthURL,
		"login.token_url":      tokensource.Endpoint.TokenURL,
		"login.password_url":   tokensource.LoginURL,
		"login.redirect_url":   tokensource.RedirectURL,
		"login.scopes":         []string{"offline"},
		"store.base_url":       xsolla.DefaultStoreBaseURL,
		"http.timeout":         "30s",
		"http.refresh_timeout": "30s",
		"log.level":            "info",
		"log.format":           "text",
	}
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "xsolla", "refresh_token")
}

// LoadConfig layers defaults, the TOML file at path (skipped when empty),
// XSOLLA_* environment variables and overrides, in that order, and validates
// the result.
func LoadConfig(path string, overrides map[string]any, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(DefaultConfig(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, EnvPrefix)
			if !strings.Contains(key, "__") {
				// Not a config key, e.g. XSOLLA_REFRESH_TOKEN.
				return "", nil
			}
			key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
			if key == "login.scopes" {
				return key, strings.Fields(value)
			}
			return key, value
		},
		EnvironFunc: environ,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("loading overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level: %w", err)
	}
	return level, nil
}

// ClassificationTable returns apierror.DefaultTable with the configured rules
// evaluated first.
func (c *Config) ClassificationTable() (apierror.Table, error) {
	rules := make([]apierror.Rule, 0, len(c.Classification))
	for i, r := range c.Classification {
		class, err := apierror.ParseClass(r.Class)
		if err != nil {
			return nil, fmt.Errorf("classification[%d]: %w", i, err)
		}
		rules = append(rules, apierror.Rule{Status: r.Status, Code: r.Code, Class: class})
	}
	return apierror.DefaultTable.With(rules...), nil
}

// NewTokenStore creates the configured storage backend.
func (a AuthConfig) NewTokenStore() (tokenstore.TokenStore, error) {
	switch a.Storage {
	case TokenStorageTypeFile:
		return tokenstore.NewFileStore(a.FilePath), nil
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyringStore(a.KeyringService, a.KeyringUser), nil
	case TokenStorageTypeEnv:
		return tokenstore.NewEnvStore(a.EnvVar), nil
	default:
		return nil, fmt.Errorf("unknown token storage %q", a.Storage)
	}
}
