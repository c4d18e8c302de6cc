package main

import (
	"context"
	"errors"
	"image"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	renderapi "github.com/aliskhannn/thumbor/internal/api/handlers/render"
	"github.com/aliskhannn/thumbor/internal/api/router"
	"github.com/aliskhannn/thumbor/internal/api/server"
	"github.com/aliskhannn/thumbor/internal/config"
	"github.com/aliskhannn/thumbor/internal/infra/kafka/consumer"
	"github.com/aliskhannn/thumbor/internal/infra/kafka/producer"
	rendermsg "github.com/aliskhannn/thumbor/internal/kafka/handlers/render"
	"github.com/aliskhannn/thumbor/internal/processor"
	renderrepo "github.com/aliskhannn/thumbor/internal/repository/render"
	rendersvc "github.com/aliskhannn/thumbor/internal/service/render"
	"github.com/aliskhannn/thumbor/internal/storage/file"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Retry strategy for Kafka calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	var mark image.Image
	if cfg.Render.WatermarkImage != "" {
		mark, err = imaging.Open(cfg.Render.WatermarkImage)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Str("path", cfg.Render.WatermarkImage).Msg("failed to open watermark image")
		}
	}

	repo := renderrepo.NewRepository(db)
	p := producer.New(&cfg.Kafka, strategy)
	renderer := processor.New(storage, processor.Options{
		Quality:      cfg.Render.Quality,
		MaxDimension: cfg.Render.MaxDimension,
		Mark:         mark,
		MarkText:     cfg.Render.WatermarkText,
	})
	service := rendersvc.NewService(storage, p, renderer, repo)

	requestedHandler := rendermsg.NewRequestedHandler(service)
	c := consumer.New(&cfg.Kafka, strategy, requestedHandler)

	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	r := router.Setup(renderapi.NewHandler(service))
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("starting server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Stop accepting requests first, then let the consumer finish its job.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	wg.Wait()

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close master DB")
	}
	for i, s := range db.Slaves {
		if err := s.Close(); err != nil {
			zlog.Logger.Error().Err(err).Int("slave", i).Msg("failed to close slave DB")
		}
	}

	if err := p.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
	if err := c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
