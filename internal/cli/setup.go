package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/hodlbook/internal/render"
	"github.com/vadiminshakov/hodlbook/internal/setup"
)

type setupCmd struct {
	out string
}

func (*setupCmd) Name() string     { return "setup" }
func (*setupCmd) Synopsis() string { return "writes a config file interactively" }
func (*setupCmd) Usage() string    { return "hodlbook setup [-out config.yaml]\n" }
func (c *setupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "out", "config.yaml", "where to write the config")
}

func (c *setupCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)

	err := setup.RunConfigWizard(c.out)
	if errors.Is(err, setup.ErrCancelled) {
		return subcommands.ExitSuccess
	}
	if err != nil {
		return env.fail(err)
	}

	fmt.Fprintln(env.Out, render.Success("Config written to "+c.out))
	return subcommands.ExitSuccess
}
