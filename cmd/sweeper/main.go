package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stockcore/internal/config"
	kafkax "stockcore/internal/kafka"
	"stockcore/internal/postgres"
	"stockcore/internal/redisx"
	"stockcore/internal/stock"
	"stockcore/internal/sweep"
)

// The sweeper is the scheduled collaborator the core assumes: it releases
// reservations for cancelled orders (via Kafka) and for expired holds (via
// a ticker). Both paths go through the manager's idempotent Release.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	store := &stock.PGStore{DB: db}
	mgr := &stock.Manager{
		Store: store,
		Log:   &stock.PGMovementLog{DB: db},
		Lg:    logger,
		Hold:  cfg.ReservationTTL,
	}

	handler := &sweep.Handler{Redis: rdb, Manager: mgr, Lg: logger}

	group := getenv("SWEEPER_GROUP", "stock-sweeper")
	workers := mustAtoi(os.Getenv("SWEEPER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, stock.TopicOrderCancelled, workers, logger)

	go func() {
		logger.Info("sweeper consumer started",
			zap.String("group", group),
			zap.String("topic", stock.TopicOrderCancelled),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, handler.HandleOrderCancelled); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	go func() {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				n, err := mgr.ReleaseExpired(ctx, now.UTC())
				if err != nil {
					logger.Error("expiry sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("expired reservations released", zap.Int("requesters", n))
				}
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down sweeper")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
