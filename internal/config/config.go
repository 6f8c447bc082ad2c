package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Mode selects which half of the application a deployment serves.
type Mode string

const (
	ModeMain  Mode = "main"
	ModeAdmin Mode = "admin"
)

func (m *Mode) UnmarshalText(text []byte) error {
	switch v := Mode(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case ModeMain, ModeAdmin:
		*m = v
		return nil
	case "":
		*m = ModeMain
		return nil
	default:
		return fmt.Errorf("unknown deploy mode %q (want main or admin)", string(text))
	}
}

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Port        string `env:"PORT" envDefault:"5050"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	Mode        Mode   `env:"DEPLOY_MODE" envDefault:"main"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	AdminUsername  string `env:"ADMIN_USERNAME"`
	AdminPassword  string `env:"ADMIN_PASSWORD"`
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`
	// Admin login attempts allowed per minute per client address.
	AdminLoginRate int `env:"ADMIN_LOGIN_RATE" envDefault:"10"`

	// Profile-role gated /admin tree in main mode. Deprecated in favour of the
	// token gated admin deployment.
	LegacyAdminEnabled bool `env:"LEGACY_ADMIN_ENABLED" envDefault:"true"`

	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`

	ErrorWebhookURL string `env:"ERROR_WEBHOOK_URL"`
}

// Load parses the process environment into a Config and validates it.
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

// Validate checks cross-field requirements that struct tags cannot express.
func (c Config) Validate() error {
	if c.Mode == ModeAdmin {
		var missing []string
		if c.AdminUsername == "" {
			missing = append(missing, "ADMIN_USERNAME")
		}
		if c.AdminPassword == "" {
			missing = append(missing, "ADMIN_PASSWORD")
		}
		if c.AdminJWTSecret == "" {
			missing = append(missing, "ADMIN_JWT_SECRET")
		}
		if len(missing) > 0 {
			return fmt.Errorf("admin mode requires %s", strings.Join(missing, ", "))
		}
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.AdminLoginRate <= 0 {
		return errors.New("ADMIN_LOGIN_RATE must be positive")
	}
	return nil
}

// Production reports whether cookies should be marked Secure.
func (c Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}
