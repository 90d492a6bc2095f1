package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwhitfield/tickwatch/internal/app"
	"github.com/cwhitfield/tickwatch/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tickwatch:", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := app.NewLogger(cfg.App)
	log.Info("starting tickwatch", "mode", cfg.App.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := app.Wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.Run(ctx, deps); err != nil {
		return err
	}

	log.Info("shutdown complete")
	return nil
}
