package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"revenue-svc/cache"
	"revenue-svc/database"
	"revenue-svc/handlers"
	"revenue-svc/kafka"
	"revenue-svc/middleware"
	"revenue-svc/models"
	"revenue-svc/notify"
	"revenue-svc/progress"
	"revenue-svc/reminder"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitDB(logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis. The reminder scheduler degrades to a store-backed
	// de-duplication check when Redis is down, so this is not fatal.
	var guard reminder.ClaimGuard
	if rdb, err := cache.InitRedis(logger); err != nil {
		logger.Warn("Redis unavailable, reminder de-duplication falls back to the store", zap.Error(err))
	} else {
		defer rdb.Close()
		guard = cache.NewReminderGuard(rdb)
	}

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Initialize Kafka consumer
	consumer, err := kafka.InitConsumer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing("revenue-service")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown()

	// Notification channels
	smsGateway := notify.NewSMSGateway(logger)
	emailTransport := notify.NewEmailTransport(logger)
	whatsappTransport := notify.NewWhatsAppTransport(logger)
	channels := []notify.Channel{smsGateway, emailTransport, whatsappTransport}

	scheduler := reminder.NewScheduler(db, guard, channels, logger)

	// Progress tracker hub, fed by the Kafka change feed and backed by a
	// 5s poll of the store per tracked payment.
	hub := progress.NewHub(func(reference string) *progress.Tracker {
		return progress.NewTracker(progress.Config{
			Reference: reference,
			Poll: func(ctx context.Context) (models.Payment, error) {
				return database.GetPaymentByReference(ctx, db, reference)
			},
			OnComplete: func(p models.Payment) {
				middleware.RecordTerminalPayment(string(p.Status))
				notifyTerminal(db, emailTransport, p.Reference,
					"Your payment "+p.Reference+" has been confirmed. Your receipt is ready on the portal.", logger)
			},
			OnFailure: func(reason string) {
				middleware.RecordTerminalPayment(string(models.PaymentStatusFailed))
				notifyTerminal(db, smsGateway, reference, reason, logger)
			},
			Logger: logger,
		})
	}, logger)
	defer hub.Stop()

	// Start Kafka consumer in background
	go func() {
		if err := kafka.StartConsumer(consumer, hub, logger); err != nil {
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	// Optional in-process reminder trigger for deployments without an
	// external cron.
	if interval := getEnv("REMINDER_INTERVAL", ""); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			logger.Fatal("Invalid REMINDER_INTERVAL", zap.Error(err))
		}
		go func() {
			ticker := time.NewTicker(d)
			defer ticker.Stop()
			for range ticker.C {
				if _, err := scheduler.Run(context.Background()); err != nil {
					logger.Error("Scheduled reminder run failed", zap.Error(err))
				}
			}
		}()
		logger.Info("In-process reminder trigger enabled", zap.Duration("interval", d))
	}

	// Setup REST API with Gin
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("revenue-service"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	paymentHandler := handlers.NewPaymentHandler(db, producer, getEnv("KAFKA_TOPIC", "payment_events"), logger)
	router.GET("/payments/:reference", paymentHandler.GetPayment)
	router.GET("/payments/:reference/progress", paymentHandler.GetPaymentProgress)

	// Operational endpoints
	reminderHandler := handlers.NewReminderHandler(scheduler, logger)
	protected := router.Group("/")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/payments/webhook", paymentHandler.Webhook)
		protected.POST("/reminders/run", reminderHandler.RunReminders)
	}

	// Start REST server
	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8085"),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start REST server", zap.Error(err))
		}
	}()

	logger.Info("Revenue Service started on :" + getEnv("PORT", "8085"))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// notifyTerminal sends the terminal notice for a payment over one channel,
// looking the destination up from the store.
func notifyTerminal(db *sql.DB, ch notify.Channel, reference, message string, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payment, err := database.GetPaymentByReference(ctx, db, reference)
	if err != nil {
		logger.Warn("Failed to load payment for terminal notice",
			zap.String("reference", reference), zap.Error(err))
		return
	}

	destination := payment.PayerEmail
	if ch.Name() != notify.ChannelEmail {
		destination = payment.PayerPhone
	}
	if destination == "" {
		return
	}

	if err := ch.Send(ctx, destination, message); err != nil {
		logger.Warn("Failed to send terminal notice",
			zap.String("reference", reference),
			zap.String("channel", ch.Name()),
			zap.Error(err))
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
