// internal/pkg/config/validators.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every configuration validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints, then cross-field and production rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Database.MaxConnections < c.Database.MinConnections {
		return fmt.Errorf("%w: database max connections must be >= min connections", ErrInvalidConfig)
	}
	if c.Ledger.RetryMaxDelay < c.Ledger.RetryBaseDelay {
		return fmt.Errorf("%w: ledger retry max delay must be >= base delay", ErrInvalidConfig)
	}

	if c.IsProduction() {
		return c.validateProduction()
	}
	return nil
}

func (c *Config) validateProduction() error {
	if c.App.StoreDriver == "memory" {
		return fmt.Errorf("%w: memory store cannot be used in production", ErrInvalidConfig)
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("%w: database SSL must be enabled in production", ErrInvalidConfig)
	}
	if c.Database.Password == "" || c.Database.Password == "stockledger_dev" {
		return fmt.Errorf("%w: database password must be set in production", ErrInvalidConfig)
	}
	for _, origin := range c.Security.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("%w: wildcard origin (*) not allowed in production", ErrInvalidConfig)
		}
	}
	return nil
}
