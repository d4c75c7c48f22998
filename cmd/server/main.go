// tirehub - tire and parts catalog with mobile mechanic service requests
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"tirehub/internal/app"
	"tirehub/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		logger.Error(ctx, "server stopped with error", logger.ErrorF(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) (err error) {
	a, err := app.New(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	cfg := a.Config()
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}
	logger.Info(ctx, "starting", logger.String("business", cfg.Business.Name), logger.Bool("debug", cfg.Debug))

	if err := a.EnsureAdmin(ctx); err != nil {
		logger.Warn(ctx, "could not create default admin", logger.ErrorF(err))
	}
	if err := a.SeedCatalog(ctx); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	workers, err := a.Workers(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		g.Go(func() error {
			return w(gctx)
		})
	}

	return g.Wait()
}
