package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"message-board/internal/api"
	"message-board/internal/config"
	"message-board/internal/consumer"
	"message-board/internal/logging"
	"message-board/internal/manager"
	"message-board/internal/messaging"
	"message-board/internal/metrics"
	"message-board/internal/storage"
)

// @title Message Board API
// @version 1.0
// @description Append-only message feed with a list and a create endpoint.
// @host localhost:5000
// @BasePath /
// @schemes http
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("graceful shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := storage.NewStorage(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()
	logger.Info("database connected", zap.String("dialect", string(db.Dialect())))

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	var publisher manager.Publisher
	var rabbit *messaging.RabbitClient
	if cfg.MessagingEnabled() {
		rabbit, err = messaging.NewRabbitClient(cfg.RabbitMQ.URL, logger.Named("rabbit"))
		if err != nil {
			return err
		}
		defer func() { _ = rabbit.Close() }()

		if err := rabbit.DeclareQueue(cfg.RabbitMQ.EventsQueue); err != nil {
			return err
		}
		publisher = messaging.NewEventPublisher(rabbit, cfg.RabbitMQ.EventsQueue)
	}

	mm := manager.NewMessageManager(db, publisher, logger.Named("manager"))
	if err := mm.Seed(ctx); err != nil {
		return err
	}

	if rabbit != nil && cfg.RabbitMQ.IngestQueue != "" && cfg.Workers > 0 {
		if err := rabbit.DeclareQueue(cfg.RabbitMQ.IngestQueue); err != nil {
			return err
		}
		c, err := consumer.StartConsumer(rabbit.Connection(), cfg.RabbitMQ.IngestQueue, mm.HandleDelivery, cfg.Workers, logger.Named("consumer"))
		if err != nil {
			return err
		}
		defer c.Stop()

		go watchQueueDepth(ctx, rabbit, cfg.RabbitMQ.IngestQueue, cfg.RabbitMQ.EventsQueue)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewAPI(mm, db, logger.Named("api")).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", zap.String("addr", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown error", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

func watchQueueDepth(ctx context.Context, rabbit *messaging.RabbitClient, queues ...string) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, q := range queues {
				rabbit.UpdateQueueDepth(q)
			}
		}
	}
}
