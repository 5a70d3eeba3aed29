package common

import (
	"context"
	"log"
	"strings"

	"library-ledger-go/internal/database"
	"library-ledger-go/internal/formance"
	"library-ledger-go/internal/gateway"
	"library-ledger-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	}
}

type Services struct {
	DbService      *database.Service
	GatewayService *gateway.Service
	Mirror         *formance.Mirror
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	gatewayService, err := gateway.NewService(cfg.Gateway)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	var mirror *formance.Mirror
	if cfg.Formance.Enabled {
		zap.L().Info("Initializing Formance earnings mirror")
		mirror, err = formance.NewMirror(ctx, cfg.Formance)
		if err != nil {
			dbService.Close()
			return nil, err
		}
	}

	return &Services{
		DbService:      dbService,
		GatewayService: gatewayService,
		Mirror:         mirror,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without the
// payment gateway. Useful for read-only tools like the report commands.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
