package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Order of precedence (low -> high):
//  1. defaults (Defaults())
//  2. file (YAML) if FLEET_CONFIG is set
//  3. env (prefix FLEET_)
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("FLEET_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: FLEET_ADDR, FLEET_DB_PATH, FLEET_LOG_LEVEL.
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("FLEET_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "fleet_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("db_path must not be empty")
	}
	return &cfg, nil
}
