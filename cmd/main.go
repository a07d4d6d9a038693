package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"maintenance-service/internal/api"
	"maintenance-service/internal/config"
	"maintenance-service/internal/db"
	"maintenance-service/internal/dispatch"
	"maintenance-service/internal/escalation"
	"maintenance-service/internal/kafka"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/providers"
	"maintenance-service/internal/schedule"
	"maintenance-service/internal/trigger"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed:", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatal("Logger init failed:", err)
	}
	defer logger.Close()

	// Connect to DB
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("DB connect failed: %v", err)
		log.Fatal("DB connect failed:", err)
	}
	defer dbConn.Close()

	// Notification dispatch (in-app + websocket + email/telegram)
	wsManager := dispatch.NewWSManager(logger)
	dispatcher := dispatch.New(
		dbConn,
		wsManager,
		providers.NewSMTPSender(cfg, logger),
		providers.NewTelegramNotifier(cfg, logger),
		logger,
	)

	// Sweep engines
	scheduler := schedule.NewScheduler(dbConn, dbConn, dbConn, logger)
	detector := schedule.NewOverdueDetector(dbConn, logger)
	engine := escalation.NewEngine(dbConn, dbConn, dbConn, dbConn, dispatcher, logger)

	// Periodic trigger
	sweeps, err := trigger.New(cfg, scheduler, detector, engine, logger)
	if err != nil {
		logger.Errorf("Trigger init failed: %v", err)
		log.Fatal("Trigger init failed:", err)
	}
	sweeps.Start()

	// Kafka consumer for asset lifecycle events
	ctx, cancel := context.WithCancel(context.Background())
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(cfg, scheduler, logger)
		go consumer.Start(ctx)
	} else {
		logger.Warnf("KAFKA_BROKER not set, asset event consumer disabled")
	}

	// Start API server
	handler := api.NewHandler(dbConn, scheduler, detector, engine, wsManager, logger)
	router := api.NewRouter(cfg, logger, handler)
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API run failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	sweeps.Stop()
	if consumer != nil {
		consumer.Close()
	}
	logger.Infof("Service stopped")
}
