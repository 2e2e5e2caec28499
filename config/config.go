package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"APP_ENV" env-default:"development"`
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080"`

	DatabaseURL string `env:"DATABASE_URL" env-required:"true"`

	JWTSecret string `env:"JWT_SECRET" env-required:"true"`
	JWTIssuer string `env:"JWT_ISSUER" env-default:"regtech-horizon"`

	// AppBaseURL is the public web app; emailed links and OAuth
	// redirects point at it.
	AppBaseURL string `env:"APP_BASE_URL" env-default:"http://localhost:3000"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIE_SECURE" env-default:"true"`

	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"720h"`
	ActivationTokenTTL time.Duration `env:"ACTIVATION_TOKEN_TTL" env-default:"24h"`
	ResetTokenTTL      time.Duration `env:"RESET_TOKEN_TTL" env-default:"1h"`
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
