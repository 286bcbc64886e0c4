package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-catalog-settlement.git/internal/config"
	kafkax "github.com/ariefcatur/go-catalog-settlement.git/internal/kafka"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/orders"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/redisx"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/stats"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &stats.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-projector",
		Log:         log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, orders.TopicOrderSettled, cfg.ProjectorWorkers, log)

	go func() {
		log.WithFields(logrus.Fields{
			"group":   cfg.ProjectorGroup,
			"topic":   orders.TopicOrderSettled,
			"workers": cfg.ProjectorWorkers,
		}).Info("sales projector started")
		if err := cons.Start(ctx, svc.HandleOrderSettled); err != nil {
			log.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down projector...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
