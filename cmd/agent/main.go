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

	"github.com/BarkinBalci/feature-flag-events/internal/cache"
	"github.com/BarkinBalci/feature-flag-events/internal/cmab"
	"github.com/BarkinBalci/feature-flag-events/internal/config"
	"github.com/BarkinBalci/feature-flag-events/internal/dispatcher"
	"github.com/BarkinBalci/feature-flag-events/internal/dispatcher/clickhouse"
	"github.com/BarkinBalci/feature-flag-events/internal/dispatcher/sqs"
	"github.com/BarkinBalci/feature-flag-events/internal/event"
	"github.com/BarkinBalci/feature-flag-events/internal/handler"
	"github.com/BarkinBalci/feature-flag-events/internal/logger"
	"github.com/BarkinBalci/feature-flag-events/internal/notification"
	"github.com/BarkinBalci/feature-flag-events/internal/processor"
	"github.com/BarkinBalci/feature-flag-events/internal/projectconfig"
	"github.com/BarkinBalci/feature-flag-events/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	log.Info("Starting agent",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort),
		zap.String("dispatcher", cfg.Events.Dispatcher))

	ctx := context.Background()

	projectConfig, err := projectconfig.FromFile(cfg.Datafile.Path)
	if err != nil {
		log.Fatal("Failed to load datafile", zap.Error(err))
	}
	log.Info("Datafile loaded",
		zap.String("project_id", projectConfig.ProjectID()),
		zap.String("revision", projectConfig.Revision()))

	// Initialize event dispatcher
	var eventDispatcher processor.Dispatcher
	var pinger handler.Pinger

	switch cfg.Events.Dispatcher {
	case config.DispatcherSQS:
		eventDispatcher, err = sqs.NewClient(ctx, cfg.SQS, log)
		if err != nil {
			log.Fatal("Failed to create SQS dispatcher", zap.Error(err))
		}
	case config.DispatcherClickHouse:
		chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
		if err != nil {
			log.Fatal("Failed to create ClickHouse client", zap.Error(err))
		}
		chDispatcher := clickhouse.NewDispatcher(chClient, log)
		defer func() {
			if err := chDispatcher.Close(); err != nil {
				log.Error("Failed to close ClickHouse dispatcher", zap.Error(err))
			}
		}()
		if err := chDispatcher.InitSchema(ctx); err != nil {
			log.Fatal("Failed to initialize schema", zap.Error(err))
		}
		eventDispatcher = chDispatcher
		pinger = chDispatcher
	default:
		eventDispatcher = dispatcher.NewHTTPDispatcher(dispatcher.HTTPConfig{
			Endpoint:   cfg.Events.Endpoint,
			MaxRetries: cfg.Events.MaxRetries,
			Timeout:    cfg.Events.HTTPTimeout,
		}, log)
	}

	// Initialize event pipeline
	notificationCenter := notification.NewCenter(log)
	builder := event.NewBuilder(log)

	var eventProcessor service.EventProcessor
	if cfg.Events.Processor == config.ProcessorForwarding {
		eventProcessor = processor.NewForwardingProcessor(builder, eventDispatcher, notificationCenter, log)
	} else {
		batchProcessor := processor.NewBatchProcessor(
			builder,
			eventDispatcher,
			notificationCenter,
			processor.Config{
				BatchSize:     cfg.Events.BatchSize,
				FlushInterval: cfg.Events.FlushInterval,
				Timeout:       cfg.Events.ShutdownTimeout,
				QueueCapacity: cfg.Events.QueueCapacity,
			},
			log,
		)
		batchProcessor.Start()
		// Drain queued events before the dispatcher is closed
		defer batchProcessor.Stop()
		eventProcessor = batchProcessor
	}

	// Initialize CMAB decision service
	cmabClient := cmab.NewHTTPClient(cmab.ClientConfig{
		PredictionEndpoint: cfg.CMAB.PredictionEndpoint,
		MaxRetries:         cfg.CMAB.MaxRetries,
		Timeout:            cfg.CMAB.Timeout,
	}, log)
	decisionCache := cache.NewLRU[cmab.CacheValue](cfg.CMAB.CacheSize, cfg.CMAB.CacheTTL)
	cmabService := cmab.NewService(decisionCache, cmabClient, log)

	experimentationService := service.NewExperimentationService(projectConfig, cmabService, eventProcessor, notificationCenter, log)

	h := handler.NewHandler(experimentationService, pinger, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Service.APIPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down agent gracefully")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down API server", zap.Error(err))
	}
}
