package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gostamp/internal/config"
	"gostamp/internal/container"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	return c.APIServer().Start(ctx, ":"+cfg.Server.Port)
}
