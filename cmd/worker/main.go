package main

import (
	"os"
	"os/signal"
	"syscall"

	"travel-checkout/internal/backend"
	"travel-checkout/internal/config"
	"travel-checkout/internal/database"
	"travel-checkout/internal/logging"
	"travel-checkout/internal/temporal/activities"
	"travel-checkout/internal/temporal/workflows"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// The worker talks to the booking backend, the API server does not.
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	// Connect to database
	db, err := database.NewDB(cfg.DatabaseDSN)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	logger.Info("Connected to database")

	// Connect to Temporal
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Temporal client")
	}
	defer temporalClient.Close()

	logger.Info("Connected to Temporal")

	// Create worker
	w := worker.New(temporalClient, cfg.TaskQueue, worker.Options{})

	// Register workflows
	w.RegisterWorkflow(workflows.CheckoutWorkflow)
	w.RegisterWorkflow(workflows.BookingStatusWorkflow)

	// Register activities
	backendClient := backend.NewClient(cfg.Backend, logger)
	w.RegisterActivity(activities.NewGateActivities(backendClient, logger))
	w.RegisterActivity(activities.NewPaymentActivities(backendClient, db, logger))
	w.RegisterActivity(activities.NewOrderActivities(db, logger))

	// Start worker
	if err := w.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start worker")
	}

	logger.WithField("taskQueue", cfg.TaskQueue).Info("Worker started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
	logger.Info("Worker stopped")
}
