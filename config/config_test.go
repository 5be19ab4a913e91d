package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hodlbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, BackendJSON, cfg.StoreBackend)
	assert.Equal(t, DefaultJSONPath, cfg.StorePath)
	assert.Equal(t, ProviderCoinGecko, cfg.Provider)
	assert.Equal(t, "usd", cfg.QuoteCurrency)
	assert.Equal(t, "USDT", cfg.ExchangeQuote)
	assert.Equal(t, 30, cfg.HistoryDays)
	assert.Equal(t, "@every 1m", cfg.RefreshInterval)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: WAL
provider: static
history_days: 7
refresh_interval: "*/30 * * * * *"
price_cache_ttl: 1m
symbols:
  Bitcoin: btc
static_prices:
  bitcoin: "64250.50"
  ethereum: "3100"
tls_domains:
  - hodl.example.com
log_level: debug
`)
	t.Setenv("HODLBOOK_STORE_PATH", "")
	t.Setenv("BINANCE_API_KEY", "key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendWAL, cfg.StoreBackend)
	assert.Equal(t, DefaultWALDir, cfg.StorePath)
	assert.Equal(t, ProviderStatic, cfg.Provider)
	assert.Equal(t, 7, cfg.HistoryDays)
	assert.Equal(t, time.Minute, cfg.PriceCacheTTL)
	assert.Equal(t, map[string]string{"bitcoin": "BTC"}, cfg.Symbols)
	assert.Equal(t, map[string]float64{"bitcoin": 64250.5, "ethereum": 3100}, cfg.StaticPrices)
	assert.Equal(t, []string{"hodl.example.com"}, cfg.TLSDomains)
	assert.Equal(t, "key", cfg.Binance.APIKey)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HODLBOOK_STORE_PATH", "/tmp/ledger.json")
	t.Setenv("COINGECKO_API_KEY", "cg-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ledger.json", cfg.StorePath)
	assert.Equal(t, "cg-key", cfg.CoinGeckoAPIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_QuoteCurrency(t *testing.T) {
	cfg, err := Load(writeConfig(t, "quote_currency: EUR\n"))
	require.NoError(t, err)
	assert.Equal(t, "eur", cfg.QuoteCurrency)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad backend", "store:\n  backend: sqlite\n"},
		{"bad provider", "provider: kraken\n"},
		{"static without prices", "provider: static\n"},
		{"bad static price", "provider: static\nstatic_prices:\n  bitcoin: abc\n"},
		{"negative static price", "provider: static\nstatic_prices:\n  bitcoin: \"-1\"\n"},
		{"history too long", "history_days: 1000\n"},
		{"bad cron", "refresh_interval: every minute\n"},
		{"bad log level", "log_level: loud\n"},
		{"quote currency without display format", "quote_currency: xyz\n"},
		{"bad yaml", "store: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
