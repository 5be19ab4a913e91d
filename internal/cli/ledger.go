package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/subcommands"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/hodlbook/internal"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"github.com/vadiminshakov/hodlbook/internal/render"
	"github.com/vadiminshakov/hodlbook/internal/setup"
)

// --- addCmd ---

type addCmd struct {
	input       setup.TransactionInput
	interactive bool
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "records a buy or sell" }
func (*addCmd) Usage() string {
	return `hodlbook add -asset <asset> -action <buy|sell> -qty <quantity> -price <unit price> [-date YYYY-MM-DD]

Appends a transaction to the ledger. Without -asset an interactive form is shown.
`
}
func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input.Asset, "asset", "", "asset identifier, e.g. bitcoin")
	f.StringVar(&c.input.Action, "action", domain.ActionBuy.String(), "buy or sell")
	f.StringVar(&c.input.Quantity, "qty", "", "quantity, must be positive")
	f.StringVar(&c.input.UnitPrice, "price", "", "unit price in the quote currency")
	f.StringVar(&c.input.Date, "date", "", "trade date (YYYY-MM-DD), defaults to today")
	f.BoolVar(&c.interactive, "i", false, "fill the transaction in a form")
}

func (c *addCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)

	var (
		tx  domain.Transaction
		err error
	)
	if c.interactive || c.input.Asset == "" {
		tx, err = setup.RunTransactionForm(c.input)
	} else {
		tx, err = c.input.Transaction()
	}
	if errors.Is(err, setup.ErrCancelled) {
		return subcommands.ExitSuccess
	}
	if err != nil {
		return env.usage(f, err.Error())
	}

	return env.withApp(func(app *internal.App) error {
		if err := app.Tracker.AddTransaction(tx); err != nil {
			return err
		}
		fmt.Fprintln(env.Out, render.Success(fmt.Sprintf("Added %s %s %s @ %s (%s)",
			tx.Action, render.Quantity(tx.Quantity), tx.Asset,
			render.Money(tx.UnitPrice, app.Config.QuoteCurrency), tx.ID)))
		return nil
	})
}

// --- listCmd ---

type listCmd struct{}

func (*listCmd) Name() string             { return "list" }
func (*listCmd) Synopsis() string         { return "lists recorded transactions, newest first" }
func (*listCmd) Usage() string            { return "hodlbook list\n" }
func (*listCmd) SetFlags(_ *flag.FlagSet) {}

func (c *listCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	return env.withApp(func(app *internal.App) error {
		txs, err := app.Tracker.Transactions()
		if err != nil {
			return err
		}
		fmt.Fprint(env.Out, render.Transactions(txs, app.Config.QuoteCurrency))
		return nil
	})
}

// --- deleteCmd ---

type deleteCmd struct{}

func (*deleteCmd) Name() string             { return "delete" }
func (*deleteCmd) Synopsis() string         { return "removes one transaction by id" }
func (*deleteCmd) Usage() string            { return "hodlbook delete <id>\n" }
func (*deleteCmd) SetFlags(_ *flag.FlagSet) {}

func (c *deleteCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)
	if f.NArg() != 1 {
		return env.usage(f, "exactly one transaction id is required")
	}
	id := strings.TrimSpace(f.Arg(0))

	return env.withApp(func(app *internal.App) error {
		if err := app.Tracker.DeleteTransaction(id); err != nil {
			return err
		}
		fmt.Fprintln(env.Out, render.Success("Deleted "+id))
		return nil
	})
}

// --- clearCmd ---

type clearCmd struct {
	yes bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "removes every transaction" }
func (*clearCmd) Usage() string    { return "hodlbook clear [-yes]\n" }
func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "skip the confirmation prompt")
}

func (c *clearCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)

	if !c.yes {
		confirmed := false
		err := huh.NewConfirm().
			Title("Delete all transactions?").
			Description("This cannot be undone.").
			Affirmative("Delete").
			Negative("Keep").
			Value(&confirmed).
			Run()
		if err != nil {
			return env.fail(err)
		}
		if !confirmed {
			fmt.Fprintln(env.Out, render.Muted("Nothing deleted."))
			return subcommands.ExitSuccess
		}
	}

	return env.withApp(func(app *internal.App) error {
		if err := app.Tracker.ClearTransactions(); err != nil {
			return err
		}
		fmt.Fprintln(env.Out, render.Success("All transactions deleted."))
		return nil
	})
}
