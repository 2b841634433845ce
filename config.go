package auth

import (
	"github.com/caarlos0/env/v11"
)

// EnvConfig is the process-wide startup configuration. Loaded once; read-only
// afterwards, so it is safe for concurrent access from request handlers.
type EnvConfig struct {
	SigningKey      string   `env:"AUTH_SIGNING_KEY,required"`
	TokenExpiration int      `env:"AUTH_TOKEN_EXPIRATION" envDefault:"24"`
	Issuer          string   `env:"AUTH_ISSUER" envDefault:"go-auth"`
	Audience        []string `env:"AUTH_AUDIENCE" envSeparator:","`
	ResetURLBase    string   `env:"AUTH_RESET_URL_BASE"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfig reads configuration from the environment.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string {
	return c.SigningKey
}

// GetTokenExpiration is the session validity horizon in hours.
func (c *EnvConfig) GetTokenExpiration() int {
	return c.TokenExpiration
}

func (c *EnvConfig) GetIssuer() string {
	return c.Issuer
}

func (c *EnvConfig) GetAudience() []string {
	return c.Audience
}

func (c *EnvConfig) GetResetURLBase() string {
	return c.ResetURLBase
}
