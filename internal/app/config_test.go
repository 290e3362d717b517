package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "parquet", cfg.SaveFormat)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, 10, cfg.MaxFailStreak)
	assert.Equal(t, 0.5, cfg.MaxJump)
	assert.Equal(t, 1000, cfg.ExchangeLimit)

	cc := cfg.CrawlConfig()
	assert.Equal(t, 100000.0, cc.PriceScale)
	assert.Equal(t, cfg.Retries, cc.Retries)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/bars")
	t.Setenv("SAVE_FORMAT", "json")
	t.Setenv("RETRIES", "5")
	t.Setenv("DAY_DELAY", "250ms")
	t.Setenv("POLYGON_API_KEY", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/bars", cfg.DataDir)
	assert.Equal(t, "json", cfg.SaveFormat)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.CrawlConfig().DayDelay)
	assert.Equal(t, "secret", cfg.ExchangeOptions().PolygonAPIKey)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"SAVE_FORMAT":     "xml",
		"MAX_FAIL_STREAK": "0",
		"PRICE_SCALE":     "-1",
		"RETRIES":         "many",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
