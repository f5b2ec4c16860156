package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runFlags mirrors the run command's flag set.
func runFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("endpoint", "", "")
	flags.String("base", "", "")
	flags.String("new", "", "")
	flags.String("base-namespace", "", "")
	flags.String("new-namespace", "", "")
	flags.Duration("timeout", 0, "")
	flags.Bool("capture-state", true, "")
	flags.String("jaeger", "", "")
	flags.String("listen", "", "")
	flags.Bool("no-color", false, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KVDIFF_BASE_PATH", "./base-revision")
	t.Setenv("KVDIFF_NEW_PATH", "./new-revision")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6379", cfg.Endpoint)
	assert.Equal(t, "kvdiff_base", cfg.Base.Namespace)
	assert.Equal(t, "kvdiff_new", cfg.New.Namespace)
	assert.Equal(t, 5*time.Second, cfg.OperationTimeout)
	assert.True(t, cfg.CaptureState)
	assert.Equal(t, 0, cfg.DB)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KVDIFF_BASE_PATH", "builtin:redisdict")
	t.Setenv("KVDIFF_NEW_PATH", "./candidate-revision")
	t.Setenv("KVDIFF_ENDPOINT", "redis.internal:6380")
	t.Setenv("KVDIFF_OPERATION_TIMEOUT", "750ms")
	t.Setenv("KVDIFF_CAPTURE_STATE", "false")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "builtin:redisdict", cfg.Base.Path)
	assert.Equal(t, "./candidate-revision", cfg.New.Path)
	assert.Equal(t, "redis.internal:6380", cfg.Endpoint)
	assert.Equal(t, 750*time.Millisecond, cfg.OperationTimeout)
	assert.False(t, cfg.CaptureState)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvdiff.yaml")
	content := `
endpoint: 10.0.0.5:6379
base:
  path: ./old-revision
  namespace: cmp_old
new:
  path: ./new-revision
  namespace: cmp_new
operation_timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:6379", cfg.Endpoint)
	assert.Equal(t, "./old-revision", cfg.Base.Path)
	assert.Equal(t, "cmp_old", cfg.Base.Namespace)
	assert.Equal(t, 2*time.Second, cfg.OperationTimeout)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("KVDIFF_BASE_PATH", "./from-env-revision")
	t.Setenv("KVDIFF_NEW_PATH", "./new-revision")
	t.Setenv("KVDIFF_ENDPOINT", "env-host:6379")

	flags := runFlags()
	require.NoError(t, flags.Parse([]string{
		"--base", "./from-flag-revision",
		"--endpoint", "flag-host:6379",
		"--timeout", "1s",
	}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "./from-flag-revision", cfg.Base.Path)
	assert.Equal(t, "flag-host:6379", cfg.Endpoint)
	assert.Equal(t, "./new-revision", cfg.New.Path, "unset flags fall back to the environment")
	assert.Equal(t, time.Second, cfg.OperationTimeout)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Base:             Revision{Path: "./a-revision", Namespace: "ns_a"},
			New:              Revision{Path: "./b-revision", Namespace: "ns_b"},
			OperationTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mut     func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing base path", func(c *Config) { c.Base.Path = "" }, "base revision path"},
		{"missing new path", func(c *Config) { c.New.Path = "" }, "new revision path"},
		{"missing namespace", func(c *Config) { c.Base.Namespace = "" }, "namespaces are required"},
		{"shared namespace", func(c *Config) { c.New.Namespace = c.Base.Namespace }, "must differ"},
		{"nested namespace", func(c *Config) { c.New.Namespace = c.Base.Namespace + ":inner" }, "must not nest"},
		{"nested the other way", func(c *Config) { c.Base.Namespace = c.New.Namespace + ":inner" }, "must not nest"},
		{"negative timeout", func(c *Config) { c.OperationTimeout = -time.Second }, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mut(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
