// Package server assembles the auth core: repositories, session service,
// HTTP surface and the expired-certificate sweeper.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/cmsauth/internal/clockx"
	"github.com/dmitrijs2005/cmsauth/internal/logging"
	"github.com/dmitrijs2005/cmsauth/internal/netx"
	"github.com/dmitrijs2005/cmsauth/internal/server/config"
	"github.com/dmitrijs2005/cmsauth/internal/server/metrics"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cmsauth/internal/server/rest"
	"github.com/dmitrijs2005/cmsauth/internal/server/services"
	"github.com/dmitrijs2005/cmsauth/internal/server/sweeper"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	sessions *services.SessionService
	server   *rest.HTTPServer
	sweeper  *sweeper.Sweeper
}

// NewApp validates c, connects the stores and runs migrations.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
	return newApp(ctx, c, logger, clockx.System{})
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, clock clockx.Clock) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repos, err := repomanager.New(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	proxies, err := netx.ParseProxies(c.TrustedProxies)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	mtr := metrics.New(registry)

	sessions := services.NewSessionService(repos, c, clock, logger, mtr)
	router := rest.NewRouter(
		rest.NewHandler(sessions, proxies, logger),
		rest.NewGuard(sessions, logger, mtr),
		mtr.Handler(),
	)

	return &App{
		config:   c,
		logger:   logger,
		repos:    repos,
		sessions: sessions,
		server:   rest.NewHTTPServer(c.EndpointAddrHTTP, router, logger),
		sweeper:  sweeper.New(repos.Certificates(), clock, logger, mtr, c.SweepSchedule, c.DBTimeout),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	return app.run(ctx)
}

func (app *App) run(ctx context.Context) error {
	defer func() {
		if err := app.repos.Close(); err != nil {
			app.logger.Error(ctx, "closing repositories", "error", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.server.Run(ctx)
	})

	g.Go(func() error {
		if err := app.sweeper.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		<-app.sweeper.Stop().Done()
		return nil
	})

	err := g.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return err
}
