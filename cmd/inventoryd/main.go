package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stockcore/internal/config"
	"stockcore/internal/httpx"
	kafkax "stockcore/internal/kafka"
	"stockcore/internal/postgres"
	"stockcore/internal/redisx"
	"stockcore/internal/stock"
)

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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (topic per message)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)

	// Core wiring
	store := &stock.PGStore{DB: db}
	movements := &stock.PGMovementLog{DB: db}
	svc := &stock.Service{
		Ledger:       &stock.Ledger{Store: store, Log: movements, Lg: logger},
		Reservations: &stock.Manager{Store: store, Log: movements, Lg: logger, Hold: cfg.ReservationTTL},
		Store:        store,
		Movements:    movements,
		Producer:     prod,
		Name:         cfg.ServiceName,
		Lg:           logger,
	}

	router := httpx.NewRouter()
	ih := &httpx.InventoryHandler{Service: svc, Redis: rdb, Lg: logger}
	ih.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // close inbox -> flush & close writer
	prod.WaitClosed()
}
