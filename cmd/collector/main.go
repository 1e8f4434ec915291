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

	"github.com/kimhsiao/fieldlog/internal/api"
	"github.com/kimhsiao/fieldlog/internal/config"
	"github.com/kimhsiao/fieldlog/internal/db"
	"github.com/kimhsiao/fieldlog/internal/logging"
	"github.com/kimhsiao/fieldlog/internal/queue"
	"github.com/kimhsiao/fieldlog/internal/sync"
	"github.com/kimhsiao/fieldlog/internal/sync/scheduler"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("failed to load config", err)
		os.Exit(1)
	}

	logging.Init(os.Stdout, cfg.LogLevel)

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		logging.Error("failed to open database", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.NewMigrator(database.DB).Up(); err != nil {
		logging.Error("failed to migrate database", err)
		os.Exit(1)
	}

	recordQueue := queue.New(database.DB)
	defer recordQueue.Close()

	monitor := sync.NewMonitor(true)
	status := &api.Status{}
	client := sync.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	engine := sync.NewEngine(recordQueue, client, monitor, status)

	sched := scheduler.New(engine, monitor, cfg.SyncInterval)
	sched.Start(ctx)
	defer sched.Stop()

	handler := api.NewHandler(recordQueue, engine, sched, monitor, status)

	server := &http.Server{
		Addr:    cfg.CollectorAddr,
		Handler: handler.Router(),
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logging.Info("shutting down collector")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logging.Info("collector listening", logrus.Fields{
		"addr":     cfg.CollectorAddr,
		"acceptor": cfg.APIBaseURL,
	})
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logging.Error("collector server error", err)
		os.Exit(1)
	}

	logging.Info("collector stopped")
}
