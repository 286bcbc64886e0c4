package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-catalog-settlement.git/internal/catalog"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/config"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-catalog-settlement.git/internal/kafka"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/ledger"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/orders"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/postgres"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/redisx"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/settlement"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("db migrate")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: settled & rejected
	pOK := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderSettled, 1024)
	pOK.Start(ctx)
	pRJ := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderRejected, 1024)
	pRJ.Start(ctx)

	ledgerRepo := &ledger.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	engine := &settlement.Engine{
		DB:          db,
		Ledger:      ledgerRepo,
		Orders:      orderRepo,
		LockTimeout: cfg.LockTimeout,
	}

	validate := validator.New()
	router := httpx.NewRouter()
	ph := &httpx.PurchasesHandler{
		Engine:     engine,
		Orders:     orderRepo,
		ProducerOK: pOK,
		ProducerRJ: pRJ,
		Redis:      rdb,
		Service:    cfg.ServiceName,
		Log:        log,
		Validate:   validate,
	}
	ph.Register(router)
	sh := &httpx.StocksHandler{Ledger: ledgerRepo, Log: log, Validate: validate}
	sh.Register(router)
	ch := &httpx.ProductsHandler{Catalog: &catalog.Repo{DB: db}, Validate: validate}
	ch.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pOK.Close() // close inbox -> flush & close writer
	pRJ.Close()
	cancel()
	pOK.WaitClosed()
	pRJ.WaitClosed()
}
