package cli

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/vadiminshakov/hodlbook/internal"
	"github.com/vadiminshakov/hodlbook/internal/scheduler"
	"github.com/vadiminshakov/hodlbook/internal/services/tracker"
	"github.com/vadiminshakov/hodlbook/internal/web"
)

type serveCmd struct {
	addr    string
	certDir string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "runs the dashboard with scheduled refreshes" }
func (*serveCmd) Usage() string {
	return `hodlbook serve [-addr :8080] [-cert-dir cert-cache]

Serves the web dashboard and JSON API. Prices are refreshed on the configured
refresh_interval. When tls_domains is set, certificates are obtained via ACME.
`
}
func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address, overrides listen_addr")
	f.StringVar(&c.certDir, "cert-dir", "cert-cache", "ACME certificate cache directory")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := envFrom(args)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return env.withApp(func(app *internal.App) error {
		l := env.Logger
		cfg := app.Config
		if c.addr != "" {
			cfg.ListenAddr = c.addr
		}

		job := tracker.NewRefreshJob(ctx, app.Tracker)
		sched := scheduler.New(l)
		if err := sched.AddJob(cfg.RefreshInterval, job); err != nil {
			return err
		}
		go func() {
			if err := sched.RunNow(job); err != nil {
				l.Warn("initial refresh failed", zap.Error(err))
			}
		}()
		sched.Start()
		defer sched.Stop()

		srv := web.NewServer(l, cfg.ListenAddr, app.Tracker)
		if len(cfg.TLSDomains) > 0 {
			return srv.StartWithAutoTLS(ctx, cfg.TLSDomains, c.certDir)
		}
		return srv.Start(ctx)
	})
}
