//	@title			Gallery API
//	@version		1.0
//	@description	Photo gallery backend: upload, list and delete images stored in object storage.
//
//	@host		localhost:8080
//	@BasePath	/api

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/artfolio/gallery/internal/cache"
	"github.com/artfolio/gallery/internal/config"
	"github.com/artfolio/gallery/internal/db"
	"github.com/artfolio/gallery/internal/events"
	"github.com/artfolio/gallery/internal/logger"
	"github.com/artfolio/gallery/internal/media"
	appMiddleware "github.com/artfolio/gallery/internal/middleware"
	"github.com/artfolio/gallery/internal/photo"
	"github.com/artfolio/gallery/internal/server"
	"github.com/artfolio/gallery/internal/storage"

	_ "github.com/artfolio/gallery/docs/swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, closeRepo, err := openRepository(startCtx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	store, err := storage.NewMinioStorage(startCtx, storage.MinioOptions{
		Endpoint:   cfg.StorageEndpoint,
		AccessKey:  cfg.StorageAccessKey,
		SecretKey:  cfg.StorageSecretKey,
		Bucket:     cfg.StorageBucket,
		PublicBase: cfg.StoragePublicBase,
		UseSSL:     cfg.StorageUseSSL,
	}, log)
	if err != nil {
		return fmt.Errorf("object storage init failed: %w", err)
	}

	var listCache photo.ListCache
	if cfg.CacheEnabled() {
		rdb, err := cache.Connect(startCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer rdb.Close()
		listCache = cache.NewPhotoCache(rdb, cfg.CacheTTL)
		log.Info("photo list cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	var publisher photo.EventPublisher
	if cfg.EventsEnabled() {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("close kafka publisher", zap.Error(err))
			}
		}()
		publisher = kp
		log.Info("photo events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	// Wire dependencies: repository → service → handler
	photoSvc := photo.NewService(repo, media.NewStore(store, cfg.MediaFolder), listCache, publisher, photo.Options{
		ThumbnailSize: cfg.ThumbnailSize,
		MaxConcurrent: cfg.MaxConcurrentUploads,
	}, log.Named("photo"))
	photoHandler := photo.NewHandler(photoSvc, cfg.MaxUploadBytes, log.Named("photo"))

	limiter := appMiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	defer limiter.Stop()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(server.Deps{
			Photos:  photoHandler,
			Limiter: limiter,
			Log:     log.Named("http"),
		}),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		log.Info("swagger UI", zap.String("url", "http://localhost:"+cfg.Port+"/swagger/"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	log.Info("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// openRepository connects the configured metadata store.
func openRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (photo.Repository, func(), error) {
	switch cfg.MetadataDriver {
	case config.DriverMongo:
		client, err := db.ConnectMongo(ctx, cfg.MongoURI, log)
		if err != nil {
			return nil, nil, fmt.Errorf("mongodb connection failed: %w", err)
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn("disconnect mongodb", zap.Error(err))
			}
		}
		repo, err := photo.NewMongoRepository(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil
	default:
		pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
		return photo.NewPostgresRepository(pool), pool.Close, nil
	}
}
