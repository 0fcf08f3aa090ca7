package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-petshop-orders.git/internal/broker"
	"github.com/ariefcatur/go-petshop-orders.git/internal/config"
	"github.com/ariefcatur/go-petshop-orders.git/internal/orders"
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
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
	}

	provider, err := broker.SelectProvider(cfg)
	if err != nil {
		logrus.Fatalf("broker: %v", err)
	}

	var cons broker.Consumer
	switch provider {
	case broker.ProviderKafka:
		cons = broker.NewKafkaConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.ConsumerWorkers)
	case broker.ProviderRedis:
		cons = broker.NewRedisConsumer(rdb)
	default:
		logrus.Fatal("the in-process broker has no cross-process consumer; configure redis or kafka, or run the consumer inside the api process")
	}

	var processed stock.ProcessedStore = stock.NewMemoryProcessed()
	if rdb != nil {
		processed = &stock.RedisProcessed{RDB: rdb}
	}
	c := stock.NewConsumer(&stock.PGLedger{DB: db}, processed)

	run := func(dest string, h broker.Handler) {
		go func() {
			logrus.WithFields(logrus.Fields{"destination": dest, "provider": provider}).Info("consumer started")
			if err := cons.Consume(ctx, dest, h); err != nil {
				logrus.WithError(err).WithField("destination", dest).Error("consumer exit")
				cancel()
			}
		}()
	}
	run(orders.DestStockDeduction, c.HandleDeduction)
	run(orders.DestStockRestore, c.HandleRestore)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logrus.Info("shutting down consumer")
	case <-ctx.Done():
	}
	cancel()
}
