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

	"github.com/susegad/supplies-backend/internal/checkout"
	"github.com/susegad/supplies-backend/internal/config"
	"github.com/susegad/supplies-backend/internal/httpx"
	kafkax "github.com/susegad/supplies-backend/internal/kafka"
	"github.com/susegad/supplies-backend/internal/postgres"
	"github.com/susegad/supplies-backend/internal/redisx"
	"github.com/susegad/supplies-backend/internal/shop"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderCreated, 1024)
	prod.Start(ctx)

	// Stores, coordinator, handler
	router := httpx.NewRouter()
	sh := &httpx.ShopHandler{
		Checkout: checkout.New(db),
		Carts:    shop.NewCartStore(db),
		Orders:   shop.NewOrderStore(db),
		Catalog:  shop.NewInventoryStore(db),
		Producer: prod,
		Redis:    rdb,
		Service:  cfg.ServiceName,
	}
	sh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	prod.WaitClosed() // drain
}
