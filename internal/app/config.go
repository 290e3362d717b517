package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"bars-archive/internal/crawl"
	"bars-archive/internal/provider"
)

// Config holds application configuration from env. Subcommand flags override it.
type Config struct {
	DataDir         string `env:"DATA_DIR" envDefault:"data" validate:"required"`
	InstrumentsFile string `env:"INSTRUMENTS_FILE" envDefault:"instruments.csv" validate:"required"`
	SaveFormat      string `env:"SAVE_FORMAT" envDefault:"parquet" validate:"oneof=csv json parquet"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"` // debug | info | warn | error
	LogFormat       string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`

	PriceScale      float64       `env:"PRICE_SCALE" envDefault:"100000" validate:"gt=0"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"30s" validate:"gt=0s"`
	Retries         int           `env:"RETRIES" envDefault:"2" validate:"gte=0"`
	MaxFailStreak   int           `env:"MAX_FAIL_STREAK" envDefault:"10" validate:"gte=1"`
	MaxJump         float64       `env:"MAX_JUMP" envDefault:"0.5" validate:"gte=0"`
	DayDelay        time.Duration `env:"DAY_DELAY" envDefault:"0s" validate:"gte=0s"`
	InstrumentDelay time.Duration `env:"INSTRUMENT_DELAY" envDefault:"0s" validate:"gte=0s"`

	DukascopyBaseURL string `env:"DUKASCOPY_BASE_URL" envDefault:"https://datafeed.dukascopy.com/datafeed" validate:"url"`
	BinanceBaseURL   string `env:"BINANCE_BASE_URL" envDefault:"https://api.binance.com" validate:"url"`
	PolygonBaseURL   string `env:"POLYGON_BASE_URL" envDefault:"https://api.polygon.io" validate:"url"`
	PolygonAPIKey    string `env:"POLYGON_API_KEY"`
	ExchangeLimit    int    `env:"EXCHANGE_LIMIT" envDefault:"1000" validate:"gte=1,lte=50000"`
}

var validate = validator.New()

// LoadConfig reads .env (if present) and the environment, then validates.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CrawlConfig returns the vendor fetch options.
func (c *Config) CrawlConfig() crawl.Config {
	return crawl.Config{
		PriceScale:    c.PriceScale,
		Timeout:       c.Timeout,
		Retries:       c.Retries,
		MaxFailStreak: c.MaxFailStreak,
		MaxJump:       c.MaxJump,
		DayDelay:      c.DayDelay,
	}
}

// ExchangeOptions returns the exchange adapter options.
func (c *Config) ExchangeOptions() provider.ExchangeOptions {
	return provider.ExchangeOptions{
		Timeout:        c.Timeout,
		BinanceBaseURL: c.BinanceBaseURL,
		PolygonBaseURL: c.PolygonBaseURL,
		PolygonAPIKey:  c.PolygonAPIKey,
	}
}
