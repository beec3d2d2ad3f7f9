package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/susegad/supplies-backend/internal/config"
	kafkax "github.com/susegad/supplies-backend/internal/kafka"
	"github.com/susegad/supplies-backend/internal/notifier"
	"github.com/susegad/supplies-backend/internal/redisx"
	"github.com/susegad/supplies-backend/internal/shop"
)

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

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Service
	svc := &notifier.Service{
		Redis: rdb,
		Mailer: &notifier.SMTPMailer{
			Addr: cfg.SMTPAddr,
			From: cfg.EmailFrom,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
		},
		ServiceName: cfg.ServiceName + "-notifier",
	}

	// Consumer
	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, shop.TopicOrderCreated, workers)

	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, shop.TopicOrderCreated, workers)
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
