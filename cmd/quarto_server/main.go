package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"quarto/db"
	"quarto/internal/quarto/config"
	server "quarto/internal/quarto/handlers"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder server.Recorder
	if dbCfg := db.LoadConfig(); dbCfg.Enabled() {
		conn, err := db.InitDB(ctx, dbCfg)
		if err != nil {
			logger.Fatal("database unavailable", zap.Error(err))
		}
		store, err := db.NewResultStore(ctx, conn)
		if err != nil {
			conn.Close()
			logger.Fatal("preparing results table", zap.Error(err))
		}
		defer store.Close()
		recorder = store
	} else {
		logger.Info("DB_NAME not set, game results are only logged")
	}

	s := server.NewServer(cfg, recorder, logger)
	logger.Info("starting server", zap.String("addr", cfg.ListenAddr()), zap.Int("ws_port", cfg.WSPort))
	if err := s.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}
