package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/xsolla-sdk/internal/app"
)

// runWithConfig runs a throwaway command carrying the root flags and returns
// the config loadConfig produced.
func runWithConfig(t *testing.T, args []string, environ func() []string) *app.Config {
	t.Helper()

	var cfg *app.Config
	cmd := &cli.Command{
		Name: "xsolla",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
			&cli.StringFlag{Name: "log-format", Value: "text"},
			&cli.StringFlag{Name: "storage"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			var err error
			cfg, err = loadConfig(cmd, environ)
			return err
		},
	}

	require.NoError(t, cmd.Run(context.Background(), append([]string{"xsolla"}, args...)))
	return cfg
}

func TestLoadConfigFlagsOverrideFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\nformat = \"json\"\n"), 0o600))

	environ := func() []string { return []string{"XSOLLA_AUTH__STORAGE=env"} }

	cfg := runWithConfig(t, []string{"--config", path, "--log-level", "error"}, environ)
	require.Equal(t, "error", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format, "unset flag must not override the file")
	require.Equal(t, app.TokenStorageTypeEnv, cfg.Auth.Storage)

	cfg = runWithConfig(t, []string{"--config", path, "--storage", "file"}, environ)
	require.Equal(t, app.TokenStorageTypeFile, cfg.Auth.Storage)
	require.Equal(t, "debug", cfg.Log.Level)
}
