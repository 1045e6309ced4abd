package userbase

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvPrefix prefixes every environment variable read by LoadSettings.
const EnvPrefix = "USERBASE_"

// Config exposes the token settings consumed by the session coordinator.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetTokenExpiration() int
	GetExtendedTokenDuration() int
}

// Settings is the full runtime configuration. It is read once at startup
// and treated as immutable afterwards.
type Settings struct {
	SigningKey            string   `env:"SIGNING_KEY"`
	Issuer                string   `env:"ISSUER" envDefault:"userbase"`
	Audience              []string `env:"AUDIENCE" envSeparator:","`
	TokenExpiration       int      `env:"TOKEN_EXPIRATION" envDefault:"24"`
	ExtendedTokenDuration int      `env:"EXTENDED_TOKEN_DURATION" envDefault:"720"`

	MinPasswordLength      int  `env:"MIN_PASSWORD_LENGTH" envDefault:"6"`
	UsernameMinLength      int  `env:"USERNAME_MIN_LENGTH" envDefault:"2"`
	UsernameMaxLength      int  `env:"USERNAME_MAX_LENGTH" envDefault:"25"`
	AllowRememberMe        bool `env:"ALLOW_REMEMBER_ME" envDefault:"true"`
	RememberOnRegistration bool `env:"REMEMBER_ON_REGISTRATION" envDefault:"false"`
	RequireInvitation      bool `env:"REQUIRE_INVITATION" envDefault:"true"`

	CodeGenerationAttempts int `env:"CODE_GENERATION_ATTEMPTS" envDefault:"8"`
	BcryptCost             int `env:"BCRYPT_COST" envDefault:"12"`

	DatabaseDSN   string `env:"DATABASE_DSN" envDefault:"file:userbase.db?cache=shared"`
	RedisAddr     string `env:"REDIS_ADDR"`
	SessionPrefix string `env:"SESSION_PREFIX" envDefault:"userbase:session:"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
}

var _ Config = Settings{}

// LoadSettings reads USERBASE_* variables from the process environment.
func LoadSettings() (Settings, error) {
	return parseSettings(env.Options{Prefix: EnvPrefix})
}

// LoadSettingsFrom reads settings from environ instead of the process
// environment. Keys carry the USERBASE_ prefix.
func LoadSettingsFrom(environ map[string]string) (Settings, error) {
	return parseSettings(env.Options{Prefix: EnvPrefix, Environment: environ})
}

func parseSettings(opts env.Options) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, errors.Wrap(err, errors.CategoryBadInput, "parse env")
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings for values the core cannot work with.
func (s Settings) Validate() error {
	switch {
	case s.TokenExpiration <= 0:
		return errors.New("token expiration must be positive", errors.CategoryValidation)
	case s.ExtendedTokenDuration < s.TokenExpiration:
		return errors.New("extended token duration must not be shorter than token expiration", errors.CategoryValidation)
	case s.MinPasswordLength < 1:
		return errors.New("minimum password length must be positive", errors.CategoryValidation)
	case s.UsernameMinLength < 1 || s.UsernameMaxLength < s.UsernameMinLength:
		return errors.New("username length bounds are invalid", errors.CategoryValidation)
	}
	return nil
}

func (s Settings) GetSigningKey() string {
	return s.SigningKey
}

func (s Settings) GetIssuer() string {
	return s.Issuer
}

func (s Settings) GetAudience() []string {
	return s.Audience
}

func (s Settings) GetTokenExpiration() int {
	return s.TokenExpiration
}

func (s Settings) GetExtendedTokenDuration() int {
	return s.ExtendedTokenDuration
}

// Policy returns the registration and login rules derived from s.
func (s Settings) Policy() Policy {
	return Policy{
		MinPasswordLength:      s.MinPasswordLength,
		UsernameMinLength:      s.UsernameMinLength,
		UsernameMaxLength:      s.UsernameMaxLength,
		AllowRememberMe:        s.AllowRememberMe,
		RememberOnRegistration: s.RememberOnRegistration,
		RequireInvitation:      s.RequireInvitation,
	}
}

// Policy holds the validation and lifecycle rules shared by scheme modules
// and the service.
type Policy struct {
	MinPasswordLength      int
	UsernameMinLength      int
	UsernameMaxLength      int
	AllowRememberMe        bool
	RememberOnRegistration bool
	RequireInvitation      bool
}

// DefaultPolicy returns the stock rules.
func DefaultPolicy() Policy {
	return Policy{
		MinPasswordLength:      6,
		UsernameMinLength:      2,
		UsernameMaxLength:      25,
		AllowRememberMe:        true,
		RememberOnRegistration: false,
		RequireInvitation:      true,
	}
}

// SessionLifetime returns how long a session lives for the given settings.
func SessionLifetime(cfg Config, remember bool) time.Duration {
	hours := cfg.GetTokenExpiration()
	if remember && cfg.GetExtendedTokenDuration() > 0 {
		hours = cfg.GetExtendedTokenDuration()
	}
	return time.Duration(hours) * time.Hour
}
