package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"quarto/internal/quarto/client"
	"quarto/internal/quarto/config"
	"quarto/internal/quarto/network"
)

func main() {
	cfg, err := config.Load("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	dial := network.TCPDialer(cfg.ListenAddr())
	if cfg.Transport == config.TransportWS {
		dial = network.WSDialer(cfg.WSURL())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	term := &terminal{out: os.Stdout}
	events := make(chan client.Event)
	go term.readInput(os.Stdin, events)
	term.printf("%s\n", help)

	c := client.NewController(events, term, dial, cfg.RetryInterval.Duration, logger)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("client failed", zap.Error(err))
		os.Exit(1)
	}
}
