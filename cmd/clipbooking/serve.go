package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"clipbooking/internal/app/bookings"
	"clipbooking/internal/app/cleanup"
	"clipbooking/internal/app/payments"
	"clipbooking/internal/app/verification"
	"clipbooking/internal/config"
	kafka_handler "clipbooking/internal/handler/kafka"
	"clipbooking/internal/infrastructure/easyslip"
	kafka_infra "clipbooking/internal/infrastructure/kafka"
	"clipbooking/internal/infrastructure/storage"
	"clipbooking/internal/outbox"
	"clipbooking/internal/repository/bookings_repo"
	"clipbooking/internal/repository/outbox_repo"
	"clipbooking/internal/repository/payments_repo"
	"clipbooking/internal/router"
)

const shutdownTimeout = 15 * time.Second

func runServe(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLogger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer appLogger.Sync()
	appLogger.Info("Clip Booking service starting...")

	db, err := connectDB(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeDB(db, appLogger)

	if err := runMigrations(cfg, appLogger); err != nil {
		return err
	}

	paymentRepository := payments_repo.NewPaymentRepository(db)
	bookingRepository := bookings_repo.NewBookingRepository(db)
	outboxRepository := outbox_repo.NewOutboxRepository(db)

	slipClient, err := easyslip.NewClient(cfg.EasySlipToken, cfg.EasySlipURL, cfg.EasySlipTimeout,
		appLogger.With(zap.String("component", "EasySlipClient")))
	if err != nil {
		return fmt.Errorf("failed to create slip verifier: %w", err)
	}
	uploader := storage.NewSupabaseUploader(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SlipBucketName,
		appLogger.With(zap.String("component", "SlipStorage")))
	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		appLogger.Warn("Slip storage is not configured, payments will be recorded without slip_url")
	}

	paymentService := payments.NewPaymentService(
		db,
		paymentRepository,
		outboxRepository,
		cfg.KafkaPaymentEventsTopic,
		appLogger.With(zap.String("component", "PaymentService")),
	)
	verificationService := verification.NewService(
		slipClient,
		uploader,
		paymentService,
		verification.Options{
			Rules:         verification.Rules{TimeDiffLimit: cfg.TimeDiffLimit},
			DefaultAmount: cfg.Amount,
			ReceiverName:  cfg.ReceiverName,
			UploadTimeout: cfg.SlipUploadTimeout,
		},
		appLogger.With(zap.String("component", "VerificationService")),
	)
	bookingService := bookings.NewBookingService(db, bookingRepository,
		appLogger.With(zap.String("component", "BookingService")))

	sweeper := cleanup.NewSweeper(db, bookingRepository, appLogger.With(zap.String("component", "BookingSweeper")))
	scheduler := cleanup.NewScheduler(sweeper, cfg.CleanupInterval(), cfg.CleanupMaxAge(), cfg.CronEnabled,
		appLogger.With(zap.String("component", "CleanupScheduler")))
	appLogger.Info("Services initialized.")

	ctxMain, cancelMain := context.WithCancel(ctx)
	defer cancelMain()

	var (
		kafkaProducer   *kafka_infra.KafkaProducer
		outboxProcessor *outbox.Processor
		eventsConsumer  *kafka_infra.Consumer
		consumerDone    sync.WaitGroup
	)
	if cfg.KafkaEnabled {
		topicsCtx, cancelTopics := context.WithTimeout(ctx, 10*time.Second)
		err := kafka_infra.EnsureTopics(topicsCtx, cfg.GetKafkaBrokers(), []string{cfg.KafkaPaymentEventsTopic}, appLogger)
		cancelTopics()
		if err != nil {
			return fmt.Errorf("failed to ensure Kafka topics: %w", err)
		}

		kafkaProducer = kafka_infra.NewProducer(cfg.GetKafkaBrokers(), appLogger.With(zap.String("component", "KafkaProducer")))
		outboxProcessor = outbox.NewProcessor(
			db,
			outboxRepository,
			kafkaProducer,
			cfg.OutboxPollInterval,
			cfg.OutboxPollTimeout,
			appLogger.With(zap.String("component", "OutboxProcessor")),
		)
		outboxProcessor.Start(ctxMain)

		eventsConsumer = kafka_infra.NewConsumer(
			cfg.GetKafkaBrokers(),
			cfg.KafkaPaymentEventsTopic,
			cfg.KafkaConsumerGroup,
			kafka_handler.PaymentVerifiedMessageHandler(bookingService, appLogger.With(zap.String("component", "PaymentVerifiedHandler"))),
			appLogger.With(zap.String("component", "PaymentEventsConsumer")),
		)
		consumerDone.Add(1)
		go func() {
			defer consumerDone.Done()
			if err := eventsConsumer.Consume(ctxMain); err != nil && !errors.Is(err, context.Canceled) {
				appLogger.Error("Payment events consumer failed", zap.Error(err))
			}
		}()
	} else {
		appLogger.Info("Kafka disabled, payment events stay in the outbox")
	}

	if scheduler.Enabled() {
		scheduler.Start(ctxMain)
	} else {
		appLogger.Info("Cleanup scheduler disabled at boot (CRON_ENABLED=false)")
	}

	handler := router.NewRouter(ctxMain, router.Dependencies{
		Payments:       paymentService,
		Verifier:       verificationService,
		Bookings:       bookingService,
		Scheduler:      scheduler,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         appLogger.With(zap.String("component", "HTTPHandler")),
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server failed: %w", err)
		appLogger.Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down.")
	}

	scheduler.Stop()
	cancelMain()

	if eventsConsumer != nil {
		if err := eventsConsumer.Close(); err != nil {
			appLogger.Error("Error closing payment events consumer", zap.Error(err))
		}
		consumerDone.Wait()
		appLogger.Info("Payment events consumer stopped.")
	}
	if outboxProcessor != nil {
		outboxProcessor.Stop()
	}
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}

	appLogger.Info("Application gracefully shut down.")
	return runErr
}
