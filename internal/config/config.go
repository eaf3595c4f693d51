// Package config loads schemadoc settings from defaults, a YAML file,
// SCHEMADOC_ environment variables and command-line flags.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/tordrt/schemadoc/internal/ddl"
)

// Defaults.
const (
	DefaultDialect    = "postgresql"
	DefaultStorePath  = "schemadoc.db"
	DefaultOutput     = "text"
	DefaultLogLevel   = "warn"
	DefaultDocsFormat = "markdown"
	DefaultServerAddr = ":8080"
	EnvPrefix         = "SCHEMADOC_"
)

// Formats accepted for delta output.
var outputFormats = map[string]bool{"text": true, "json": true, "yaml": true}

// Formats accepted for documentation output.
var docsFormats = map[string]bool{"text": true, "markdown": true, "dbml": true}

// Config holds all schemadoc settings.
type Config struct {
	Dialect   string       `koanf:"dialect"`
	StorePath string       `koanf:"store_path"`
	Output    string       `koanf:"output"`
	LogLevel  string       `koanf:"log_level"`
	Docs      DocsConfig   `koanf:"docs"`
	Server    ServerConfig `koanf:"server"`
	Header    HeaderConfig `koanf:"header"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// DocsConfig configures documentation output.
type DocsConfig struct {
	Format    string `koanf:"format"`
	OutputDir string `koanf:"output_dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// HeaderConfig configures the DDL script header.
type HeaderConfig struct {
	Label string `koanf:"label"`
}

// flagKeys maps CLI flag names onto config keys where they differ.
var flagKeys = map[string]string{
	"store":      "store_path",
	"format":     "docs.format",
	"output-dir": "docs.output_dir",
	"addr":       "server.addr",
	"label":      "header.label",
	"log-level":  "log_level",
}

// findConfigFile returns the config file to use.
// Priority: explicit path > schemadoc.yaml > schemadoc.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"schemadoc.yaml", "schemadoc.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration. Precedence (highest to lowest):
// flags > env vars > config file > defaults. Only flags that were
// explicitly set override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"dialect":     DefaultDialect,
		"store_path":  DefaultStorePath,
		"output":      DefaultOutput,
		"log_level":   DefaultLogLevel,
		"docs.format": DefaultDocsFormat,
		"server.addr": DefaultServerAddr,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// SCHEMADOC_DOCS__OUTPUT_DIR -> docs.output_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
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

// Validate checks the dialect, output formats and log level.
func (c *Config) Validate() error {
	if c.Dialect != "all" {
		if _, err := ddl.ParseDialect(c.Dialect); err != nil {
			return fmt.Errorf("invalid dialect: %w", err)
		}
	}
	if !outputFormats[c.Output] {
		return fmt.Errorf("invalid output format %q (use text, json or yaml)", c.Output)
	}
	if !docsFormats[c.Docs.Format] {
		return fmt.Errorf("invalid docs format %q (use text, markdown or dbml)", c.Docs.Format)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log level name onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
