// Package config loads exprql CLI configuration.
//
// Precedence, highest first: flags, EXPRQL_* environment variables, the config
// file, defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides. EXPRQL_LOG_LEVEL sets log.level.
const EnvPrefix = "EXPRQL_"

// DefaultFiles are searched in the working directory when no file is given.
var DefaultFiles = []string{"exprql.yaml", "exprql.yml"}

// Defaults.
const (
	DefaultDialect  = "postgres"
	DefaultOutput   = "text"
	DefaultLogLevel = "warn"
)

// Dialects lists the supported dialect names.
var Dialects = []string{"postgres", "sqlite", "mssql", "mariadb"}

// Config is the resolved CLI configuration.
type Config struct {
	Dialect string    `koanf:"dialect"`
	Escape  string    `koanf:"escape"`
	Schema  string    `koanf:"schema"`
	Object  string    `koanf:"object"`
	Output  string    `koanf:"output"`
	Log     LogConfig `koanf:"log"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level string `koanf:"level"`
}

// Load reads configuration. An explicit path must exist; otherwise the first
// of DefaultFiles present is used. Only flags that were set override.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"dialect":   DefaultDialect,
		"output":    DefaultOutput,
		"log.level": DefaultLogLevel,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findFile(path)
	if path != "" && used == "" {
		return nil, fmt.Errorf("config file %s not found", path)
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey maps EXPRQL_LOG_LEVEL to log.level.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

// flagKey maps --log-level to log.level.
func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", ".")
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Dialects, c.Dialect) {
		errs = append(errs, fmt.Errorf("unknown dialect %q (want one of %s)", c.Dialect, strings.Join(Dialects, ", ")))
	}
	if c.Output != "text" && c.Output != "json" {
		errs = append(errs, fmt.Errorf("unknown output %q (want text or json)", c.Output))
	}
	if utf8.RuneCountInString(c.Escape) > 1 {
		errs = append(errs, fmt.Errorf("escape must be a single character, got %q", c.Escape))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// EscapeChar returns the configured LIKE escape character, or 0 for the
// dialect default.
func (c *Config) EscapeChar() rune {
	r, _ := utf8.DecodeRuneInString(c.Escape)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// LogLevel parses the configured level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}
