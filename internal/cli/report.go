package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/hodlbook/internal"
	"github.com/vadiminshakov/hodlbook/internal/render"
	"github.com/vadiminshakov/hodlbook/internal/services/tracker"
)

const refreshTimeout = 2 * time.Minute

func refresh(ctx context.Context, env *Env, app *internal.App) (*tracker.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	report, err := app.Tracker.Refresh(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "refresh portfolio")
	}
	for _, w := range report.Warnings {
		fmt.Fprintln(env.Err, render.Muted("warning: "+w))
	}
	return report, nil
}

// --- holdingsCmd ---

type holdingsCmd struct{}

func (*holdingsCmd) Name() string             { return "holdings" }
func (*holdingsCmd) Synopsis() string         { return "shows current positions valued at market prices" }
func (*holdingsCmd) Usage() string            { return "hodlbook holdings\n" }
func (*holdingsCmd) SetFlags(_ *flag.FlagSet) {}

func (c *holdingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	return env.withApp(func(app *internal.App) error {
		report, err := refresh(ctx, env, app)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Out, render.Holdings(report.Snapshot, report.Portfolio, app.Config.QuoteCurrency))
		return nil
	})
}

// --- historyCmd ---

type historyCmd struct{}

func (*historyCmd) Name() string             { return "history" }
func (*historyCmd) Synopsis() string         { return "shows the daily value of current holdings" }
func (*historyCmd) Usage() string            { return "hodlbook history\n" }
func (*historyCmd) SetFlags(_ *flag.FlagSet) {}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	return env.withApp(func(app *internal.App) error {
		report, err := refresh(ctx, env, app)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Out, render.History(report.History, app.Config.QuoteCurrency))
		return nil
	})
}

// --- chartCmd ---

type chartCmd struct {
	days int
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "shows one asset's price history with EMA and RSI" }
func (*chartCmd) Usage() string    { return "hodlbook chart [-days N] <asset>\n" }
func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 0, "days of history, defaults to history_days from the config")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	if f.NArg() != 1 {
		return env.usage(f, "exactly one asset is required")
	}

	return env.withApp(func(app *internal.App) error {
		ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()

		chart, err := app.Tracker.CoinChart(ctx, f.Arg(0), c.days)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Out, render.CoinChart(chart.Asset, chart.Points, chart.PercentChange, app.Config.QuoteCurrency))
		return nil
	})
}
