package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// InitConfig creates a sample configuration file at the default location.
// Returns the path of the created file.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a sample configuration file at the given path.
// Fails if the file already exists unless force is set.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	secret, err := randomSecret()
	if err != nil {
		return err
	}

	sample := fmt.Sprintf(sampleConfig, secret)

	// 0600 because the sample carries a generated signing secret
	if err := os.WriteFile(path, []byte(sample), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// randomSecret generates a 32-byte hex-encoded secret for dev use.
func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

const sampleConfig = `# bucketd Configuration File
#
# Every option can be overridden with a BUCKETD_* environment variable,
# using underscores for nested keys. Example: BUCKETD_LOGGING_LEVEL=DEBUG

logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: INFO
  # Output format: text or json
  format: text
  # Destination: stdout, stderr, or a file path
  output: stdout

server:
  # Bind address and port
  host: 0.0.0.0
  port: 8080
  # Read/write timeouts are disabled (0) so large streaming transfers
  # are never cut mid-flight. Set them only behind a buffering proxy.
  read_timeout: 0s
  write_timeout: 0s
  idle_timeout: 2m
  shutdown_timeout: 30s

store:
  # Directory objects are stored under (created on startup)
  root: data
  # Maximum upload size; 0 or unset means unbounded.
  # Accepts "100MB", "1Gi", or plain bytes.
  # max_upload_size: 100MB

auth:
  # Token verification mode: off, hs256, rs256.
  # rs256 is the default and fails closed until JWKS support ships;
  # hs256 is the working dev mode.
  mode: hs256
  # HS256 signing secret. Generated at init; for production prefer
  # BUCKETD_AUTH_SECRET over the config file.
  secret: %s
  # Allowed token issuers (empty accepts any)
  # issuers:
  #   - http://localhost:8080
  # Expected audience (empty skips the check)
  # audience: bucketd
  # Maximum lifetime of tokens minted through /auth/login
  max_token_ttl: 15m
  # Per-route-class protection and required scopes
  write:
    protected: true
    scopes: [obj:write]
  read:
    protected: false
    scopes: [obj:read]
  list:
    protected: false
    scopes: [obj:list]
  # Dev-only credential file for the signup/login endpoints
  credentials_path: ./auth/users.json

metrics:
  # Expose Prometheus request metrics at /metrics
  enabled: false
`
