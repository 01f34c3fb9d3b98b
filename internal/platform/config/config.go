package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthModeDev    = "dev"
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"
)

type Config struct {
	Port string `mapstructure:"PORT"`

	// DB_DSN vacío => repos in-memory (modo dev / tests).
	DBDSN    string `mapstructure:"DB_DSN"`
	RedisURL string `mapstructure:"REDIS_URL"`

	// Base para armar share URLs: {FRONTEND_BASE_URL}/view/{level}/{token}
	FrontendBaseURL string `mapstructure:"FRONTEND_BASE_URL"`

	AuthMode       string `mapstructure:"AUTH_MODE"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	JWTIssuer      string `mapstructure:"JWT_ISSUER"`
	IdentityURL    string `mapstructure:"IDENTITY_URL"`
	IdentityAPIKey string `mapstructure:"IDENTITY_API_KEY"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	LogFile   string `mapstructure:"LOG_FILE"`
	AppName   string `mapstructure:"APP_NAME"`

	RateLimitPerMinute int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	TrustProxyHeaders  bool          `mapstructure:"TRUST_PROXY_HEADERS"`
	DisplayTimezone    string        `mapstructure:"DISPLAY_TIMEZONE"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"PORT",
	"DB_DSN",
	"REDIS_URL",
	"FRONTEND_BASE_URL",
	"AUTH_MODE",
	"JWT_SECRET",
	"JWT_ISSUER",
	"IDENTITY_URL",
	"IDENTITY_API_KEY",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"LOG_FILE",
	"APP_NAME",
	"RATE_LIMIT_PER_MINUTE",
	"TRUST_PROXY_HEADERS",
	"DISPLAY_TIMEZONE",
	"SHUTDOWN_TIMEOUT",
}

// Load lee env vars (y un .env opcional en el cwd) sobre los defaults.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	v.SetDefault("AUTH_MODE", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("APP_NAME", "patient-health-qr")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("TRUST_PROXY_HEADERS", false)
	v.SetDefault("DISPLAY_TIMEZONE", "UTC")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// El .env es opcional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.FrontendBaseURL = strings.TrimRight(strings.TrimSpace(cfg.FrontendBaseURL), "/")
	cfg.AuthMode = resolveAuthMode(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveAuthMode: si AUTH_MODE no viene, se infiere de lo que esté configurado.
// Con DB_DSN no hay fallback a dev: queda vacío y Validate lo rechaza.
func resolveAuthMode(cfg *Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	if mode != "" {
		return mode
	}
	switch {
	case strings.TrimSpace(cfg.JWTSecret) != "":
		return AuthModeJWT
	case strings.TrimSpace(cfg.IdentityURL) != "":
		return AuthModeRemote
	case strings.TrimSpace(cfg.DBDSN) != "":
		return ""
	default:
		return AuthModeDev
	}
}

func (c *Config) Validate() error {
	switch c.AuthMode {
	case "":
		return fmt.Errorf("config: DB_DSN is set, AUTH_MODE must be explicit (jwt, remote or dev)")
	case AuthModeDev:
	case AuthModeJWT:
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("config: AUTH_MODE=jwt requires JWT_SECRET")
		}
	case AuthModeRemote:
		if strings.TrimSpace(c.IdentityURL) == "" {
			return fmt.Errorf("config: AUTH_MODE=remote requires IDENTITY_URL")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_MODE %q", c.AuthMode)
	}

	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("config: RATE_LIMIT_PER_MINUTE must be >= 0")
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		return fmt.Errorf("config: invalid DISPLAY_TIMEZONE %q: %w", c.DisplayTimezone, err)
	}
	return nil
}

func (c *Config) Addr() string {
	p := strings.TrimSpace(c.Port)
	if strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}

// Location devuelve la zona para renderizar timestamps; UTC si no se puede cargar.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
