package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infrarepo "app/internal/infra/repository"
	"app/internal/logging"
	"app/internal/server"
	"app/internal/usecase"
)

func main() {
	//.envはローカル用。無くてもよい
	_ = godotenv.Load()

	logger := logging.New(os.Getenv("GO_ENV"))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	gormDB, err := db.Connect()
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.ServiceCenter{},
		&model.CentralInventoryPart{},
		&model.PartsIssueRequest{},
		&model.PartsIssueLine{},
		&model.DispatchRecord{},
		&model.PurchaseOrder{},
		&model.PurchaseOrderItem{},
		&model.ServiceCenterInventory{},
		&model.AuditLog{},
		&model.DocumentSequence{},
	); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	//repository
	txManager := infrarepo.NewTxManagerGorm(gormDB)
	userRepo := infrarepo.NewUserGormRepository(gormDB)
	tokenRepo := infrarepo.NewRefreshTokenGormRepository(gormDB)
	centerRepo := infrarepo.NewServiceCenterGormRepository(gormDB)

	//usecase
	authUC := usecase.NewAuthUsecase(cfg, userRepo, tokenRepo)
	issueUC := usecase.NewPartsIssueUsecase(txManager, centerRepo, logger, cfg.DealerCode)
	partUC := usecase.NewCentralPartUsecase(txManager)
	centerUC := usecase.NewServiceCenterUsecase(centerRepo, txManager)

	e := server.New(cfg, server.Handlers{
		Auth:          handler.NewAuthHandler(authUC, cfg),
		PartsIssues:   handler.NewPartsIssueHandler(issueUC),
		CentralParts:  handler.NewCentralPartHandler(partUC),
		ServiceCenter: handler.NewServiceCenterHandler(centerUC),
	})

	logger.Info("server starting", "port", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
