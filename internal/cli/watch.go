package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"github.com/vadiminshakov/hodlbook/internal/render"
	"github.com/vadiminshakov/hodlbook/internal/services/tracker"
	"github.com/vadiminshakov/hodlbook/internal/web"
)

type watchCmd struct {
	server   string
	currency string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "prints live reports from a running hodlbook server" }
func (*watchCmd) Usage() string {
	return `hodlbook watch [-server http://localhost:8080]

Follows the server's report stream and prints the totals of every refresh.
`
}
func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.server, "server", "http://localhost:8080", "base URL of the server")
	f.StringVar(&c.currency, "currency", "usd", "quote currency used for display")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := web.NewStreamClient(env.Logger, c.server, nil)
	err := client.Follow(ctx, func(r *tracker.Report) {
		fmt.Fprintln(env.Out, render.Muted(fmt.Sprintf("#%d %s", r.Generation, r.RefreshedAt.Format("2006-01-02 15:04:05"))))
		fmt.Fprint(env.Out, render.Totals(r.Portfolio, c.currency))
		for _, w := range r.Warnings {
			fmt.Fprintln(env.Err, render.Muted("warning: "+w))
		}
	})
	if err != nil {
		return env.fail(err)
	}
	return subcommands.ExitSuccess
}
