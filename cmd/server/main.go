package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/kimhsiao/fieldlog/internal/config"
	"github.com/kimhsiao/fieldlog/internal/logging"
	"github.com/kimhsiao/fieldlog/internal/server"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("failed to load config", err)
		os.Exit(1)
	}

	logging.Init(os.Stdout, cfg.LogLevel)

	store, err := server.NewStore(cfg.DataDir)
	if err != nil {
		logging.Error("failed to open submission store", err)
		os.Exit(1)
	}

	handler := server.NewHandler(store)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: handler.Router(),
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logging.Info("shutting down acceptor")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Info("acceptor listening", logrus.Fields{"addr": cfg.ServerAddr})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Error("acceptor server error", err)
		os.Exit(1)
	}

	logging.Info("acceptor stopped")
}
