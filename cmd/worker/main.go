package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"cp360/internal/config"
	"cp360/internal/infra/db"
	"cp360/internal/infra/queue"
	infraRepo "cp360/internal/infra/repository"
	"cp360/internal/worker"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[worker] config: %v", err)
	}

	gormDB, err := db.Connect()
	if err != nil {
		log.Fatalf("[worker] db connect: %v", err)
	}

	videoRepo := infraRepo.NewProductVideoGormRepository(gormDB)

	//SIGINT/SIGTERMで止める
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queueClient := queue.NewClient(cfg.NatsURL)
	if err := queueClient.Connect(ctx); err != nil {
		log.Fatalf("[worker] queue connect: %v", err)
	}
	defer queueClient.Close()

	if err := queueClient.CreateConsumer(ctx); err != nil {
		log.Fatalf("[worker] create consumer: %v", err)
	}

	msgs, err := queueClient.Subscribe(ctx)
	if err != nil {
		log.Fatalf("[worker] subscribe: %v", err)
	}

	processor := worker.NewProcessor(videoRepo)
	processor.Run(ctx, msgs)
}
