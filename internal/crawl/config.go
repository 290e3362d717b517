package crawl

import (
	"time"

	"bars-archive/internal/bi5"
	"bars-archive/internal/validate"
)

// Config holds the fetch options of one update run.
type Config struct {
	// PriceScale divides the feed's integer prices. Default 100000.
	PriceScale float64
	// Timeout bounds each fetch attempt. Default 30s.
	Timeout time.Duration
	// Retries is the number of extra attempts per day. Default 2.
	Retries int
	// MaxFailStreak stops the run after this many consecutive empty days. Default 10.
	MaxFailStreak int
	// MaxJump is the close-to-close change at which a bar is dropped. Default 0.5; <= 0 disables.
	MaxJump float64
	// DayDelay is waited after each day's attempts. Default 0.
	DayDelay time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		PriceScale:    bi5.DefaultPriceScale,
		Timeout:       30 * time.Second,
		Retries:       2,
		MaxFailStreak: 10,
		MaxJump:       validate.DefaultMaxJump,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PriceScale <= 0 {
		c.PriceScale = d.PriceScale
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.MaxFailStreak <= 0 {
		c.MaxFailStreak = d.MaxFailStreak
	}
	if c.DayDelay < 0 {
		c.DayDelay = 0
	}
	return c
}
