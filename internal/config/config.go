package config

import (
	"errors"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	applog "totembo/internal/log"
)

type Config struct {
	Port         string `env:"PORT,default=8081"`
	DBDSN        string `env:"DB_DSN,default=totembo.db"`
	MediaDir     string `env:"MEDIA_DIR,default=./web/media"`
	StaticDir    string `env:"STATIC_DIR,default=./web/static"`
	TemplatesDir string `env:"TEMPLATES_DIR,default=./web/templates"`
	LogFile      string `env:"LOG_FILE,default=./totembo.log"`
	BaseURL      string `env:"BASE_URL,default=http://localhost:8081"`
	CookieSecure bool   `env:"COOKIE_SECURE,default=false"`

	StripeSecretKey    string  `env:"STRIPE_SECRET_KEY"`
	PaymentCurrency    string  `env:"PAYMENT_CURRENCY,default=usd"`
	PaymentProductName string  `env:"PAYMENT_PRODUCT_NAME,default=Товар магазина: TOTEMBO"`
	PaymentTokenSecret string  `env:"PAYMENT_TOKEN_SECRET,default=dev-secret"`
	PaymentRatePerSec  float64 `env:"PAYMENT_RATE_PER_SEC,default=5"`

	RedisURL string `env:"REDIS_URL"`

	CartTTL       time.Duration `env:"CART_TTL,default=72h"`
	CartSweepSpec string        `env:"CART_SWEEP_SPEC,default=@every 15m"`

	TraceStdout bool `env:"TRACE_STDOUT,default=false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, err
	}
	applog.Printf("[config] PORT=%s DB_DSN=%s MEDIA_DIR=%s LOG_FILE=%s BASE_URL=%s REDIS=%t STRIPE=%t",
		cfg.Port, cfg.DBDSN, cfg.MediaDir, cfg.LogFile, cfg.BaseURL, cfg.RedisURL != "", cfg.StripeSecretKey != "")
	return cfg, nil
}

// Defaults returns the configuration used when no environment is set.
// Tests start from it and override what they need.
func Defaults() Config {
	return Config{
		Port:               "8081",
		DBDSN:              ":memory:",
		MediaDir:           "./web/media",
		StaticDir:          "./web/static",
		TemplatesDir:       "./web/templates",
		BaseURL:            "http://localhost:8081",
		PaymentCurrency:    "usd",
		PaymentProductName: "Товар магазина: TOTEMBO",
		PaymentTokenSecret: "dev-secret",
		PaymentRatePerSec:  5,
		CartTTL:            72 * time.Hour,
		CartSweepSpec:      "@every 15m",
	}
}
