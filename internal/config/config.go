// Package config resolves harness settings from defaults, an optional
// YAML file, KVDIFF_* environment variables, and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Revision locates one side of the comparison.
type Revision struct {
	// Path is a revision executable path or a builtin:<name> reference.
	Path string
	// Namespace is the key-space prefix dedicated to this side.
	Namespace string
}

// Config is the fully resolved harness configuration.
type Config struct {
	// Endpoint is the backing-store address (host:port). Empty disables
	// the harness's own store connection; only builtin in-memory
	// revisions can run without one.
	Endpoint string
	Password string
	DB       int

	Base Revision
	New  Revision

	OperationTimeout time.Duration
	CaptureState     bool

	JaegerEndpoint string
	ListenAddr     string
	NoColor        bool
}

// flagBindings maps config keys to the run command's flag names.
var flagBindings = map[string]string{
	"endpoint":          "endpoint",
	"base.path":         "base",
	"base.namespace":    "base-namespace",
	"new.path":          "new",
	"new.namespace":     "new-namespace",
	"operation_timeout": "timeout",
	"capture_state":     "capture-state",
	"jaeger_endpoint":   "jaeger",
	"listen":            "listen",
	"no_color":          "no-color",
}

// Load resolves the configuration. A missing config file is an error only
// when a path was given explicitly.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("endpoint", "127.0.0.1:6379")
	v.SetDefault("password", "")
	v.SetDefault("db", 0)
	v.SetDefault("base.namespace", "kvdiff_base")
	v.SetDefault("new.namespace", "kvdiff_new")
	v.SetDefault("operation_timeout", "5s")
	v.SetDefault("capture_state", true)

	v.SetEnvPrefix("KVDIFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Endpoint:         v.GetString("endpoint"),
		Password:         v.GetString("password"),
		DB:               v.GetInt("db"),
		Base:             Revision{Path: v.GetString("base.path"), Namespace: v.GetString("base.namespace")},
		New:              Revision{Path: v.GetString("new.path"), Namespace: v.GetString("new.namespace")},
		OperationTimeout: v.GetDuration("operation_timeout"),
		CaptureState:     v.GetBool("capture_state"),
		JaegerEndpoint:   v.GetString("jaeger_endpoint"),
		ListenAddr:       v.GetString("listen"),
		NoColor:          v.GetBool("no_color"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Base.Path == "" {
		return fmt.Errorf("base revision path is required")
	}
	if c.New.Path == "" {
		return fmt.Errorf("new revision path is required")
	}
	if c.Base.Namespace == "" || c.New.Namespace == "" {
		return fmt.Errorf("both namespaces are required")
	}
	if c.Base.Namespace == c.New.Namespace {
		return fmt.Errorf("base and new namespaces must differ, both are %q", c.Base.Namespace)
	}
	if strings.HasPrefix(c.Base.Namespace, c.New.Namespace+":") ||
		strings.HasPrefix(c.New.Namespace, c.Base.Namespace+":") {
		// Flushing the outer namespace would sweep the inner one's keys.
		return fmt.Errorf("namespaces %q and %q must not nest", c.Base.Namespace, c.New.Namespace)
	}
	if c.OperationTimeout < 0 {
		return fmt.Errorf("operation timeout must not be negative")
	}
	return nil
}
