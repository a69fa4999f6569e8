package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-roster-api/api/swagger"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/internal/server"
	"github.com/noah-isme/sma-roster-api/internal/service"
	"github.com/noah-isme/sma-roster-api/pkg/cache"
	"github.com/noah-isme/sma-roster-api/pkg/config"
	"github.com/noah-isme/sma-roster-api/pkg/database"
	"github.com/noah-isme/sma-roster-api/pkg/export"
	"github.com/noah-isme/sma-roster-api/pkg/logger"
	"github.com/noah-isme/sma-roster-api/pkg/storage"
)

// @title SMA Roster API
// @version 1.0.0
// @description Classroom attendance and behaviour roster
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closer, err := openRosterRepository(ctx, cfg)
	if err != nil {
		logr.Sugar().Fatalw("failed to open roster storage", "driver", cfg.Storage.Driver, "error", err)
	}
	defer closer.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()

	roster := service.NewRosterService(repo, validate, logr, metrics, service.RosterConfig{StrictVocabulary: cfg.Roster.StrictVocabulary})
	if err := roster.Load(ctx); err != nil {
		logr.Sugar().Fatalw("failed to load roster", "error", err)
	}

	exportFiles, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exports := service.NewExportService(roster, exportFiles, signer,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
		logr, metrics, export.NewCSVExporter(), export.NewPDFExporter(cfg.Exports.FontPath))

	imports := service.NewImportService(roster, cfg.Import.MaxFileSizeBytes, logr)
	auth := service.NewAuthService(validate, logr, service.AuthConfig{
		Enabled:           cfg.Auth.Enabled,
		PINHash:           cfg.Auth.PINHash,
		AccessTokenSecret: cfg.Auth.Secret,
		AccessTokenExpiry: cfg.Auth.Expiration,
		Issuer:            cfg.Auth.Issuer,
	})

	r := server.NewRouter(server.Deps{
		Config:  cfg,
		Logger:  logr,
		Roster:  roster,
		Imports: imports,
		Exports: exports,
		Auth:    auth,
		Metrics: metrics,
	})

	go runExportCleanup(ctx, exports, cfg.Exports, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openRosterRepository(ctx context.Context, cfg *config.Config) (service.RosterRepository, io.Closer, error) {
	switch cfg.Storage.Driver {
	case config.StorageRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisRosterRepository(client, cfg.Storage.RedisKey), client, nil
	case config.StoragePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewPostgresRosterRepository(db, cfg.Storage.RowID)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repo, db, nil
	default:
		files, err := storage.NewLocalStorage(filepath.Dir(cfg.Storage.FilePath))
		if err != nil {
			return nil, nil, err
		}
		return repository.NewFileRosterRepository(files, filepath.Base(cfg.Storage.FilePath)), nopCloser{}, nil
	}
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, cfg config.ExportsConfig, logr *zap.Logger) {
	if cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := exports.Cleanup(cfg.SignedURLTTL)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(deleted)))
			}
		}
	}
}
