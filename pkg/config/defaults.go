package config

import (
	"strings"
	"time"
)

// GetDefaultConfig returns a fully defaulted configuration, as produced when
// no config file or environment overrides are present. Writes are protected,
// reads and listings are open.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Auth.Write.Protected = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyAuthDefaults(&cfg.Auth)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets HTTP server defaults. Read/write timeouts stay at
// zero so streaming transfers of arbitrary size are never cut mid-flight.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyStoreDefaults sets object store defaults. MaxUploadSize stays at zero
// (unbounded) unless configured.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Root == "" {
		cfg.Root = "data"
	}
}

// applyAuthDefaults sets authorization defaults.
//
// The default mode is rs256, which rejects all protected traffic until JWKS
// verification is configured; a server must be opted in to hs256 or off.
// Writes are protected out of the box, reads and listings are open.
func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.Mode == "" {
		cfg.Mode = "rs256"
	}
	cfg.Mode = strings.ToLower(cfg.Mode)

	if cfg.MaxTokenTTL == 0 {
		cfg.MaxTokenTTL = 15 * time.Minute
	}
	if cfg.JWKSTTL == 0 {
		cfg.JWKSTTL = 5 * time.Minute
	}
	if cfg.CredentialsPath == "" {
		cfg.CredentialsPath = "./auth/users.json"
	}

	if cfg.Write.Scopes == nil {
		cfg.Write.Scopes = []string{"obj:write"}
	}
	if cfg.Read.Scopes == nil {
		cfg.Read.Scopes = []string{"obj:read"}
	}
	if cfg.List.Scopes == nil {
		cfg.List.Scopes = []string{"obj:list"}
	}
}
