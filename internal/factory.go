package internal

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vadiminshakov/hodlbook/config"
	"github.com/vadiminshakov/hodlbook/internal/clients"
	"github.com/vadiminshakov/hodlbook/internal/services/pricer"
	"github.com/vadiminshakov/hodlbook/internal/services/tracker"
	"github.com/vadiminshakov/hodlbook/internal/storage/transactions"
)

// App wires the store, the price provider and the tracker for one run.
type App struct {
	Config  config.Config
	Store   transactions.Store
	Pricer  pricer.Pricer
	Tracker *tracker.Tracker
	Logger  *zap.Logger
}

// NewApp opens the configured store and builds the tracker on top of it.
func NewApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := transactions.Open(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		return nil, errors.Wrap(err, "open transaction store")
	}

	p, err := NewPricer(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Store:   store,
		Pricer:  p,
		Tracker: tracker.New(logger, store, p, cfg.HistoryDays),
		Logger:  logger,
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// NewPricer creates the price provider selected in cfg, wrapped in a TTL
// cache. This is the single point of dispatch to provider implementations.
func NewPricer(cfg config.Config, logger *zap.Logger) (pricer.Pricer, error) {
	symbols := pricer.SymbolMap(cfg.Symbols)

	var p pricer.Pricer
	switch cfg.Provider {
	case config.ProviderCoinGecko:
		opts := []pricer.CoinGeckoOption{pricer.WithAPIKey(cfg.CoinGeckoAPIKey)}
		if cfg.CoinGeckoURL != "" {
			opts = append(opts, pricer.WithBaseURL(cfg.CoinGeckoURL))
		}
		p = pricer.NewCoinGecko(logger, cfg.QuoteCurrency, opts...)
	case config.ProviderBinance:
		client := clients.NewBinanceClient(cfg.Binance.APIKey, cfg.Binance.APISecret)
		p = pricer.NewBinancePricer(logger, client, symbols, cfg.ExchangeQuote)
	case config.ProviderBybit:
		client := clients.NewBybitClient(cfg.Bybit.APIKey, cfg.Bybit.APISecret)
		p = pricer.NewBybitPricer(logger, client, symbols, cfg.ExchangeQuote)
	case config.ProviderStatic:
		// no network, nothing to cache
		return pricer.NewStaticPricer(cfg.StaticPrices), nil
	default:
		return nil, errors.Errorf("unsupported price provider %q", cfg.Provider)
	}

	return pricer.NewCachedPricer(logger, p, cfg.PriceCacheTTL, 0), nil
}

// NewLogger builds a production zap logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "parse log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	// keep stdout for command output
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}
