package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shopmesh/orderflow/internal/config"
	kafkax "github.com/shopmesh/orderflow/internal/kafka"
	"github.com/shopmesh/orderflow/internal/orders"
	"github.com/shopmesh/orderflow/internal/projector"
	"github.com/shopmesh/orderflow/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", cfg.ServiceName+"-projector"))

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &projector.Service{Redis: rdb, Log: logger}

	group := getenv("PROJECTOR_GROUP", "order-status-projector")
	workers := atoiOr(os.Getenv("PROJECTOR_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderLifecycle, workers, logger)

	go func() {
		logger.Info("projector consumer started",
			zap.String("group", group),
			zap.String("topic", orders.TopicOrderLifecycle),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandleLifecycleEvent); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down projector")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return def
	}
	return i
}
