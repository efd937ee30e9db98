package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/park285/cheese-board-client/internal/clientbuilder"
	"github.com/park285/cheese-board-client/internal/config"
	"github.com/park285/cheese-board-client/internal/obslog"
	"github.com/park285/cheese-board-client/internal/tui"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := obslog.InitFromEnv(obslog.ForTUI); err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	deps, err := clientbuilder.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("client init error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui := tui.New(deps.Client, deps.Catalog, tui.Options{
		Server: cfg.ServerURL,
		PNGDir: cfg.PNGDir,
		Logger: logger.Named("tui"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := deps.Client.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// quitting the UI ends the client as well
		defer cancel()
		return ui.Run(gctx)
	})

	err = g.Wait()
	logger.Info("shutdown", zap.Error(err))
	return err
}
