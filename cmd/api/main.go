package main

import (
	"context"
	"log"

	"cp360/internal/config"
	"cp360/internal/domain/model"
	"cp360/internal/handler"
	"cp360/internal/infra/db"
	"cp360/internal/infra/queue"
	infraRepo "cp360/internal/infra/repository"
	"cp360/internal/infra/storage"
	"cp360/internal/server"
	"cp360/internal/usecase"
	"cp360/internal/worker"

	"github.com/joho/godotenv"
)

func main() {
	//.envは無くても良い（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[api] config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatalf("[api] db connect: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.ProductVideo{},
		&model.VideoJob{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("[api] migrate: %v", err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	videoRepo := infraRepo.NewProductVideoGormRepository(gormDB)
	videoJobRepo := infraRepo.NewVideoJobGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	ctx := context.Background()

	//動画の保存先（S3互換）
	blobs, err := storage.NewS3Storage(ctx, cfg)
	if err != nil {
		log.Fatalf("[api] storage: %v", err)
	}

	//JetStream（outbox dispatcherのpublish先）
	queueClient := queue.NewClient(cfg.NatsURL)
	if err := queueClient.Connect(ctx); err != nil {
		log.Fatalf("[api] queue: %v", err)
	}
	defer queueClient.Close()

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo)
	adminUserUC := usecase.NewAdminUserUsecase(userRepo, auditRepo)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo, productRepo, userRepo)
	productUC := usecase.NewProductUsecase(productRepo, videoRepo, categoryRepo, userRepo, auditRepo, txManager, blobs)

	//Handler生成
	authH := handler.NewAuthHandler(authUC)
	adminUserH := handler.NewAdminUserHandler(adminUserUC)
	categoryH := handler.NewCategoryHandler(categoryUC)
	productH := handler.NewProductHandler(productUC)

	//outbox dispatcher（pending行をqueueへ流す）
	dispatcher := worker.NewDispatcher(videoJobRepo, queueClient)
	go dispatcher.Run(ctx)

	//Server起動
	srv := server.New(cfg, userRepo, authH, adminUserH, categoryH, productH)
	if err := srv.Start(); err != nil {
		log.Fatalf("[api] server: %v", err)
	}
}
