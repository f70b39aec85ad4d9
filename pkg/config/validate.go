package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct-level validation tags
// plus a few cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				return fmt.Errorf("invalid config field %s: failed %q validation", fe.Namespace(), fe.Tag())
			}
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	// hs256 without a secret is allowed at startup; the gate fails closed
	// per request. A secret that is set but trivially short is a config
	// mistake worth rejecting outright.
	if cfg.Auth.Mode == "hs256" && cfg.Auth.Secret != "" && len(cfg.Auth.Secret) < 16 {
		return fmt.Errorf("auth.secret must be at least 16 characters when set")
	}

	return nil
}
