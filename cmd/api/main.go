package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shopmesh/orderflow/internal/config"
	"github.com/shopmesh/orderflow/internal/httpx"
	kafkax "github.com/shopmesh/orderflow/internal/kafka"
	"github.com/shopmesh/orderflow/internal/orders"
	"github.com/shopmesh/orderflow/internal/payment"
	"github.com/shopmesh/orderflow/internal/postgres"
	"github.com/shopmesh/orderflow/internal/redisx"
	"github.com/shopmesh/orderflow/internal/shipping"
	"github.com/shopmesh/orderflow/internal/stock"
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
	logger = logger.With(zap.String("service", cfg.ServiceName))

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderLifecycle, 1024, logger)
	prod.Start(ctx)

	orderRepo := &orders.Repo{DB: db}
	cartRepo := &orders.CartRepo{DB: db}
	shippingRepo := &shipping.Repo{DB: db}
	stockRepo := &stock.Repo{DB: db}
	gateway := payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey)

	svc := orders.NewService(orderRepo, cartRepo, shippingRepo, stockRepo, gateway, prod, cfg.ServiceName, logger)
	queries := orders.NewQueries(orderRepo)
	processor := payment.NewProcessor(cfg.WebhookSecret, svc, rdb, logger)

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Svc: svc, Queries: queries, Redis: rdb, Log: logger}).Register(router)
	(&httpx.WebhookHandler{Processor: processor, Log: logger}).Register(router)
	(&httpx.StockHandler{Ledger: stockRepo}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	prod.Close() // stop accepting, flush buffered events
	prod.WaitClosed()
}
