// Package cli implements the hodlbook subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/hodlbook/config"
	"github.com/vadiminshakov/hodlbook/internal"
)

// Env is handed to every command through Execute's variadic arguments.
type Env struct {
	ConfigPath string
	Logger     *zap.Logger
	Out        io.Writer
	Err        io.Writer
	// NewLogger rebuilds Logger at the configured log_level once the config
	// is loaded. Optional.
	NewLogger func(level string) (*zap.Logger, error)
}

// Register adds all hodlbook commands to cdr.
func Register(cdr *subcommands.Commander) {
	cdr.Register(cdr.HelpCommand(), "")
	cdr.Register(cdr.FlagsCommand(), "")
	cdr.Register(cdr.CommandsCommand(), "")

	cdr.Register(&addCmd{}, "ledger")
	cdr.Register(&listCmd{}, "ledger")
	cdr.Register(&deleteCmd{}, "ledger")
	cdr.Register(&clearCmd{}, "ledger")

	cdr.Register(&holdingsCmd{}, "report")
	cdr.Register(&historyCmd{}, "report")
	cdr.Register(&chartCmd{}, "report")

	cdr.Register(&serveCmd{}, "")
	cdr.Register(&watchCmd{}, "")
	cdr.Register(&setupCmd{}, "")
}

func envFrom(args []interface{}) *Env {
	for _, a := range args {
		if env, ok := a.(*Env); ok {
			return env.withDefaults()
		}
	}
	return (&Env{}).withDefaults()
}

func (e *Env) withDefaults() *Env {
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	if e.Out == nil {
		e.Out = os.Stdout
	}
	if e.Err == nil {
		e.Err = os.Stderr
	}
	return e
}

func (e *Env) config() (config.Config, error) {
	cfg, err := config.Load(e.ConfigPath)
	if err != nil {
		return config.Config{}, errors.Wrap(err, "load config")
	}
	if e.NewLogger != nil {
		l, err := e.NewLogger(cfg.LogLevel)
		if err != nil {
			return config.Config{}, err
		}
		e.Logger = l
	}
	return cfg, nil
}

func (e *Env) open() (*internal.App, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	return internal.NewApp(cfg, e.Logger)
}

func (e *Env) fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(e.Err, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func (e *Env) usage(f *flag.FlagSet, msg string) subcommands.ExitStatus {
	fmt.Fprintf(e.Err, "Error: %s\n", msg)
	f.Usage()
	return subcommands.ExitUsageError
}

// withApp opens the store for the duration of fn.
func (e *Env) withApp(fn func(app *internal.App) error) subcommands.ExitStatus {
	app, err := e.open()
	if err != nil {
		return e.fail(err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			e.Logger.Warn("close store", zap.Error(err))
		}
	}()

	if err := fn(app); err != nil {
		return e.fail(err)
	}
	return subcommands.ExitSuccess
}

// Execute runs the command line in args against env.
func Execute(ctx context.Context, name string, args []string, env *Env) subcommands.ExitStatus {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.withDefaults().Err)
	fs.StringVar(&env.ConfigPath, "config", env.ConfigPath, "path to the YAML config file")

	cdr := subcommands.NewCommander(fs, name)
	Register(cdr)

	if err := fs.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}
	return cdr.Execute(ctx, env)
}
