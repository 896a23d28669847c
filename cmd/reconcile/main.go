// Command reconcile recomputes every mission's volunteer counter from its
// registrations and reports the missions it had to repair.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jondumad/EcoPulse-Backend/internal/repository"
	"github.com/jondumad/EcoPulse-Backend/internal/service"
	"github.com/jondumad/EcoPulse-Backend/pkg/config"
	"github.com/jondumad/EcoPulse-Backend/pkg/database"
	"github.com/jondumad/EcoPulse-Backend/pkg/logger"
)

func main() {
	var (
		timeout    time.Duration
		failOnDiff bool
	)
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall run timeout")
	flag.BoolVar(&failOnDiff, "fail-on-repair", false, "exit 1 when any counter was repaired")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	store := repository.NewPostgresStore(db, cfg.Database.TxTimeout)
	svc := service.NewRegistrationService(store, nil, nil, logger.Named(logr, "reconcile"), nil)

	repairs, err := svc.ReconcileCounts(ctx)
	if err != nil {
		logr.Fatal("reconcile failed", zap.Error(err))
	}
	for _, r := range repairs {
		logr.Info("counter repaired",
			zap.String("mission_id", r.MissionID),
			zap.String("title", r.Title),
			zap.Int("stored", r.Stored),
			zap.Int("actual", r.Actual),
		)
	}
	logr.Info("reconcile finished", zap.Int("repaired", len(repairs)))

	if failOnDiff && len(repairs) > 0 {
		logr.Sync() //nolint:errcheck
		os.Exit(1)
	}
}
