// Package config loads and validates the bucketd configuration from file,
// environment, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/bucketd/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the bucketd configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (BUCKETD_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains HTTP server settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Store configures the object store backing directory
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Auth configures bearer-token authorization for the object routes
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the bind address
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the HTTP listen port
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// ReadTimeout and WriteTimeout bound a single request/response cycle.
	// Zero disables the timeout; the default is zero because object
	// uploads and downloads of unbounded size must not be cut mid-stream.
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive connections between requests
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// StoreConfig configures the object store backing directory.
type StoreConfig struct {
	// Root is the directory objects are stored under. Created on startup
	// if missing.
	Root string `mapstructure:"root" validate:"required" yaml:"root"`

	// MaxUploadSize caps a single PUT body. Zero means unbounded.
	// Supports human-readable formats: "100MB", "1Gi", or plain bytes.
	MaxUploadSize bytesize.ByteSize `mapstructure:"max_upload_size" yaml:"max_upload_size,omitempty"`
}

// AuthConfig configures bearer-token authorization.
type AuthConfig struct {
	// Mode selects token verification: "off", "hs256", or "rs256".
	// Default: rs256, which fails closed until JWKS verification ships.
	Mode string `mapstructure:"mode" validate:"required,oneof=off hs256 rs256" yaml:"mode"`

	// Secret is the HS256 signing secret. Required in hs256 mode; a
	// missing secret rejects all protected traffic rather than failing
	// startup. Prefer BUCKETD_AUTH_SECRET over the config file.
	Secret string `mapstructure:"secret" yaml:"secret,omitempty"`

	// Issuers is the allow-list of accepted iss claims. Empty accepts any.
	Issuers []string `mapstructure:"issuers" yaml:"issuers,omitempty"`

	// Audience is the expected aud claim. Empty skips the check.
	Audience string `mapstructure:"audience" yaml:"audience,omitempty"`

	// MaxTokenTTL caps the lifetime of tokens minted through /auth/login
	MaxTokenTTL time.Duration `mapstructure:"max_token_ttl" yaml:"max_token_ttl"`

	// Write, Read and List are the per-route-class policies
	Write RouteConfig `mapstructure:"write" yaml:"write"`
	Read  RouteConfig `mapstructure:"read" yaml:"read"`
	List  RouteConfig `mapstructure:"list" yaml:"list"`

	// JWKSURLs and JWKSTTL configure rs256 key fetching. Parsed and
	// surfaced in the startup banner; verification itself is not yet
	// implemented and rs256 fails closed.
	JWKSURLs []string      `mapstructure:"jwks_urls" yaml:"jwks_urls,omitempty"`
	JWKSTTL  time.Duration `mapstructure:"jwks_ttl" yaml:"jwks_ttl"`

	// CredentialsPath is the dev-only JSON credential file used by the
	// signup/login endpoints
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
}

// RouteConfig is the policy for one route class.
type RouteConfig struct {
	// Protected requires a valid bearer token for this route class
	Protected bool `mapstructure:"protected" yaml:"protected"`

	// Scopes is the required scope set; any overlap with the token's
	// scopes authorizes the request. Empty requires no scope.
	Scopes []string `mapstructure:"scopes" yaml:"scopes,omitempty"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	// Enabled controls whether request metrics and the /metrics endpoint
	// are active
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns the loaded and validated configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	bindKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Writes are protected out of the box. The zero value of a bool cannot
	// distinguish "unset" from an explicit false, so the default is applied
	// only when neither the file nor the environment set the key.
	if !v.IsSet("auth.write.protected") {
		cfg.Auth.Write.Protected = true
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages. It checks that
// the config file exists and points the user at `bucketd init` if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  bucketd init\n\n"+
				"Or specify a custom config file:\n"+
				"  bucketd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  bucketd init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600 because the file may carry the signing secret
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the BUCKETD_ prefix and underscores
	// Example: BUCKETD_LOGGING_LEVEL=DEBUG, BUCKETD_AUTH_SECRET=...
	v.SetEnvPrefix("BUCKETD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindKeys declares every config key to viper so AutomaticEnv resolves the
// matching BUCKETD_* variables even when no config file mentions the key.
func bindKeys(v *viper.Viper) {
	for _, key := range []string{
		"logging.level",
		"logging.format",
		"logging.output",
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.shutdown_timeout",
		"store.root",
		"store.max_upload_size",
		"auth.mode",
		"auth.secret",
		"auth.issuers",
		"auth.audience",
		"auth.max_token_ttl",
		"auth.write.protected",
		"auth.write.scopes",
		"auth.read.protected",
		"auth.read.scopes",
		"auth.list.protected",
		"auth.list.scopes",
		"auth.jwks_urls",
		"auth.jwks_ttl",
		"auth.credentials_path",
		"metrics.enabled",
	} {
		// BindEnv with one argument derives the env name from the prefix
		// and the key itself
		_ = v.BindEnv(key)
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		csvSliceDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize so
// config files can use human-readable sizes like "1Gi" or "100MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration so config files can
// use human-readable durations like "30s" or "15m".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// csvSliceDecodeHook splits comma-separated strings into string slices so
// env vars like BUCKETD_AUTH_ISSUERS="a,b" map onto []string fields.
func csvSliceDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}

		raw, _ := data.(string)
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if home cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "bucketd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "bucketd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
