// Package config loads hodlbook settings from a YAML file, an optional .env
// file and environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	ProviderCoinGecko = "coingecko"
	ProviderBinance   = "binance"
	ProviderBybit     = "bybit"
	ProviderStatic    = "static"

	BackendJSON = "json"
	BackendWAL  = "wal"

	DefaultJSONPath        = "./data/transactions.json"
	DefaultWALDir          = "./data/wal"
	DefaultQuoteCurrency   = "usd"
	DefaultExchangeQuote   = "USDT"
	DefaultHistoryDays     = 30
	DefaultRefreshInterval = "@every 1m"
	DefaultListenAddr      = ":8080"
	DefaultLogLevel        = "info"
	DefaultPriceCacheTTL   = 30 * time.Second
	maxHistoryDays         = 365
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Credentials holds exchange API credentials. Both are optional: public market
// data works without them.
type Credentials struct {
	APIKey    string
	APISecret string
}

type Config struct {
	StoreBackend    string
	StorePath       string
	Provider        string
	QuoteCurrency   string
	ExchangeQuote   string
	HistoryDays     int
	RefreshInterval string
	PriceCacheTTL   time.Duration
	ListenAddr      string
	TLSDomains      []string
	Symbols         map[string]string
	StaticPrices    map[string]float64
	LogLevel        string
	CoinGeckoURL    string
	CoinGeckoAPIKey string
	Binance         Credentials
	Bybit           Credentials
}

// ConfigTmp is the raw YAML layout of the config file.
type ConfigTmp struct {
	Store struct {
		Backend string `yaml:"backend,omitempty"`
		Path    string `yaml:"path,omitempty"`
	} `yaml:"store,omitempty"`
	Provider        string            `yaml:"provider,omitempty"`
	QuoteCurrency   string            `yaml:"quote_currency,omitempty"`
	ExchangeQuote   string            `yaml:"exchange_quote,omitempty"`
	HistoryDays     int               `yaml:"history_days,omitempty"`
	RefreshInterval string            `yaml:"refresh_interval,omitempty"`
	PriceCacheTTL   time.Duration     `yaml:"price_cache_ttl,omitempty"`
	ListenAddr      string            `yaml:"listen_addr,omitempty"`
	TLSDomains      []string          `yaml:"tls_domains,omitempty"`
	Symbols         map[string]string `yaml:"symbols,omitempty"`
	StaticPrices    map[string]string `yaml:"static_prices,omitempty"`
	LogLevel        string            `yaml:"log_level,omitempty"`
	CoinGeckoURL    string            `yaml:"coingecko_url,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, _ := fromTmp(ConfigTmp{})
	return cfg
}

// Load reads the YAML file at path (empty path means defaults), then applies
// .env and environment overrides.
func Load(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var tmp ConfigTmp
	if path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(payload, &tmp); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	cfg, err := fromTmp(tmp)
	if err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromTmp(c ConfigTmp) (Config, error) {
	cfg := Config{
		StoreBackend:    strings.ToLower(strings.TrimSpace(c.Store.Backend)),
		StorePath:       c.Store.Path,
		Provider:        strings.ToLower(strings.TrimSpace(c.Provider)),
		QuoteCurrency:   strings.ToLower(strings.TrimSpace(c.QuoteCurrency)),
		ExchangeQuote:   strings.ToUpper(strings.TrimSpace(c.ExchangeQuote)),
		HistoryDays:     c.HistoryDays,
		RefreshInterval: strings.TrimSpace(c.RefreshInterval),
		PriceCacheTTL:   c.PriceCacheTTL,
		ListenAddr:      c.ListenAddr,
		TLSDomains:      c.TLSDomains,
		Symbols:         make(map[string]string, len(c.Symbols)),
		StaticPrices:    make(map[string]float64, len(c.StaticPrices)),
		LogLevel:        strings.ToLower(strings.TrimSpace(c.LogLevel)),
		CoinGeckoURL:    c.CoinGeckoURL,
	}

	if cfg.StoreBackend == "" {
		cfg.StoreBackend = BackendJSON
	}
	if cfg.StorePath == "" {
		cfg.StorePath = DefaultJSONPath
		if cfg.StoreBackend == BackendWAL {
			cfg.StorePath = DefaultWALDir
		}
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderCoinGecko
	}
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = DefaultQuoteCurrency
	}
	if cfg.ExchangeQuote == "" {
		cfg.ExchangeQuote = DefaultExchangeQuote
	}
	if cfg.HistoryDays == 0 {
		cfg.HistoryDays = DefaultHistoryDays
	}
	if cfg.RefreshInterval == "" {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.PriceCacheTTL == 0 {
		cfg.PriceCacheTTL = DefaultPriceCacheTTL
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	for asset, symbol := range c.Symbols {
		cfg.Symbols[strings.ToLower(strings.TrimSpace(asset))] = strings.ToUpper(strings.TrimSpace(symbol))
	}

	for asset, raw := range c.StaticPrices {
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, errors.Wrapf(err, "incorrect 'static_prices' value for %s in yaml config", asset)
		}
		if price.IsNegative() {
			return Config{}, errors.Errorf("incorrect 'static_prices' value for %s: must not be negative", asset)
		}
		f, _ := price.Float64()
		cfg.StaticPrices[strings.ToLower(strings.TrimSpace(asset))] = f
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HODLBOOK_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.CoinGeckoAPIKey = v
	}
	cfg.Binance = Credentials{
		APIKey:    os.Getenv("BINANCE_API_KEY"),
		APISecret: os.Getenv("BINANCE_API_SECRET"),
	}
	cfg.Bybit = Credentials{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
	}
}

// Validate checks field values.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendJSON, BackendWAL:
	default:
		return errors.Errorf("incorrect 'store.backend' %q, expected json or wal", c.StoreBackend)
	}

	switch c.Provider {
	case ProviderCoinGecko, ProviderBinance, ProviderBybit:
	case ProviderStatic:
		if len(c.StaticPrices) == 0 {
			return errors.New("provider 'static' requires 'static_prices'")
		}
	default:
		return errors.Errorf("incorrect 'provider' %q, expected coingecko, binance, bybit or static", c.Provider)
	}

	// display precision comes from the go-money currency table
	if money.GetCurrency(strings.ToUpper(c.QuoteCurrency)) == nil {
		return errors.Errorf("incorrect 'quote_currency' %q, expected an ISO 4217 code such as usd or eur", c.QuoteCurrency)
	}

	if c.HistoryDays < 1 || c.HistoryDays > maxHistoryDays {
		return errors.Errorf("incorrect 'history_days' %d, must be between 1 and %d", c.HistoryDays, maxHistoryDays)
	}
	if _, err := cronParser.Parse(c.RefreshInterval); err != nil {
		return errors.Wrapf(err, "incorrect 'refresh_interval' %q", c.RefreshInterval)
	}
	if c.PriceCacheTTL < 0 {
		return errors.New("'price_cache_ttl' must not be negative")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("incorrect 'log_level' %q", c.LogLevel)
	}

	return nil
}
