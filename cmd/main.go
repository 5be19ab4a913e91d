// Command hodlbook tracks a crypto portfolio: a local ledger of buys and sells,
// FIFO cost basis, live valuation and a daily value history.
//
// Usage:
//
//	hodlbook [-config config.yaml] <command> [flags]
//
// Commands: add, list, delete, clear, holdings, history, chart, serve, watch, setup.
//
// Optional environment variables:
//
//	COINGECKO_API_KEY, BINANCE_API_KEY, BINANCE_API_SECRET,
//	BYBIT_API_KEY, BYBIT_API_SECRET, HODLBOOK_STORE_PATH
package main

import (
	"context"
	"log"
	"os"
	"path"

	"github.com/vadiminshakov/hodlbook/config"
	"github.com/vadiminshakov/hodlbook/internal"
	"github.com/vadiminshakov/hodlbook/internal/cli"
)

func main() {
	logger, err := internal.NewLogger(config.DefaultLogLevel)
	if err != nil {
		log.Fatal(err)
	}

	env := &cli.Env{Logger: logger, NewLogger: internal.NewLogger}
	status := cli.Execute(context.Background(), path.Base(os.Args[0]), os.Args[1:], env)
	_ = env.Logger.Sync()
	os.Exit(int(status))
}
