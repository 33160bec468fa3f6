// Package config loads fragwatch settings from the environment.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/fragwatch/internal/cache"
)

// Config holds settings shared by the CLI commands. Flags override these.
type Config struct {
	// DB is the SQLite database path.
	DB string `env:"FRAGWATCH_DB" envDefault:"fragwatch.db"`

	// Format is the output format, text or json.
	Format string `env:"FRAGWATCH_FORMAT" envDefault:"text"`

	Verbose bool `env:"FRAGWATCH_VERBOSE"`

	// MetricsAddr is where watch serves Prometheus metrics. Empty disables it.
	MetricsAddr string `env:"FRAGWATCH_METRICS_ADDR"`

	// KeyFields overrides identifying fields per typename.
	KeyFields KeyFields `env:"FRAGWATCH_KEY_FIELDS"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values env cannot check itself.
func (c Config) Validate() error {
	switch c.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be text or json", c.Format)
	}
}

// KeyFields maps a typename to the fields that identify its objects.
//
// The text form is a comma separated list of Type=field|field entries,
// e.g. "Edition=isbn|year,User=login".
type KeyFields map[string][]string

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *KeyFields) UnmarshalText(text []byte) error {
	out := KeyFields{}
	for _, entry := range strings.Split(string(text), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		typename, fields, ok := strings.Cut(entry, "=")
		typename = strings.TrimSpace(typename)
		if !ok || typename == "" {
			return fmt.Errorf("key fields entry %q: want Type=field|field", entry)
		}
		var names []string
		for _, f := range strings.Split(fields, "|") {
			if f = strings.TrimSpace(f); f != "" {
				names = append(names, f)
			}
		}
		if len(names) == 0 {
			return fmt.Errorf("key fields entry %q: no fields", entry)
		}
		out[typename] = names
	}
	*k = out
	return nil
}

// CacheOptions turns the overrides into cache options, ordered by typename.
func (k KeyFields) CacheOptions() []cache.Option {
	typenames := make([]string, 0, len(k))
	for t := range k {
		typenames = append(typenames, t)
	}
	slices.Sort(typenames)

	opts := make([]cache.Option, 0, len(typenames))
	for _, t := range typenames {
		opts = append(opts, cache.WithKeyFields(t, k[t]...))
	}
	return opts
}
