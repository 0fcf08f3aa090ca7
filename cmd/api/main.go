package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-petshop-orders.git/internal/broker"
	"github.com/ariefcatur/go-petshop-orders.git/internal/config"
	"github.com/ariefcatur/go-petshop-orders.git/internal/httpx"
	"github.com/ariefcatur/go-petshop-orders.git/internal/orders"
	"github.com/ariefcatur/go-petshop-orders.git/internal/outbox"
	"github.com/ariefcatur/go-petshop-orders.git/internal/peers"
	"github.com/ariefcatur/go-petshop-orders.git/internal/postgres"
	"github.com/ariefcatur/go-petshop-orders.git/internal/redisx"
	"github.com/ariefcatur/go-petshop-orders.git/internal/stock"
)

func main() {
	_ = godotenv.Load()
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logrus.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	var rdb *redis.Client
	var replica peers.Replica
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		replica = &peers.RedisReplica{RDB: rdb}
	}

	bk, err := broker.Open(cfg, rdb)
	if err != nil {
		logrus.Fatalf("broker: %v", err)
	}
	defer bk.Close()

	repo := &orders.PGRepo{DB: db}
	obox := &outbox.PGStore{DB: db}
	customers := peers.NewCustomerDirectory(cfg.CustomerServiceURL, replica)
	products := peers.NewProductCatalog(cfg.ProductServiceURL)
	svc := orders.NewService(repo, customers, products, orders.NewPublisher(bk, obox))

	relay := outbox.NewRelay(obox, bk, cfg.OutboxRelayInterval)
	go relay.Run(ctx)

	// with the in-process transport there is no separate worker binary, so
	// the stock consumer runs inside this process
	if mb, ok := bk.(*broker.MemoryBroker); ok {
		var processed stock.ProcessedStore = stock.NewMemoryProcessed()
		if rdb != nil {
			processed = &stock.RedisProcessed{RDB: rdb}
		}
		cons := stock.NewConsumer(&stock.PGLedger{DB: db}, processed)
		go func() { _ = mb.Consume(ctx, orders.DestStockDeduction, cons.HandleDeduction) }()
		go func() { _ = mb.Consume(ctx, orders.DestStockRestore, cons.HandleRestore) }()
	}

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Service: svc}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logrus.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()
}
