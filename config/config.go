// Package config defines service configuration and its layered loading.
package config

// Config contains process configuration for the incentive engine server.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file, ":memory:" for ephemeral runs.
	DBPath string `koanf:"db_path"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// CORSOrigins lists allowed CORS origins for the API.
	CORSOrigins []string `koanf:"cors_origins"`
}

// Defaults returns a Config populated with development defaults.
func Defaults() *Config {
	return &Config{
		Addr:        ":8080",
		DBPath:      "incentive.db",
		LogLevel:    "info",
		CORSOrigins: []string{"*"},
	}
}
