package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"revenue-svc/database"
	"revenue-svc/kafka"
	"revenue-svc/middleware"
	"revenue-svc/models"
	"revenue-svc/progress"
	"revenue-svc/receipts"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	db       *sql.DB
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewPaymentHandler(db *sql.DB, producer sarama.SyncProducer, topic string, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		db:       db,
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	reference := c.Param("reference")

	payment, err := database.GetPaymentByReference(c.Request.Context(), h.db, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		traceID := middleware.GetTraceID(c.Request.Context())
		h.logger.Error("Database error", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// GetPaymentProgress projects the payment's persisted status onto the six
// ordered settlement stages.
func (h *PaymentHandler) GetPaymentProgress(c *gin.Context) {
	reference := c.Param("reference")

	payment, err := database.GetPaymentByReference(c.Request.Context(), h.db, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		traceID := middleware.GetTraceID(c.Request.Context())
		h.logger.Error("Database error", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	steps, percent := progress.Project(payment)
	c.JSON(http.StatusOK, gin.H{
		"reference": payment.Reference,
		"status":    payment.Status,
		"steps":     steps,
		"percent":   percent,
	})
}

// Webhook receives gateway status callbacks. On confirmation it stamps
// confirmed_at, generates the receipt, and publishes the change event that
// feeds the realtime progress trackers.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	ctx, span := otel.Tracer("revenue-service").Start(c.Request.Context(), "GatewayWebhook")
	defer span.End()

	var req models.GatewayNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, ok := models.ParsePaymentStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment status"})
		return
	}

	span.SetAttributes(
		attribute.String("payment.reference", req.Reference),
		attribute.String("payment.status", string(status)),
	)

	payment, err := database.UpdatePaymentStatus(ctx, h.db, req.Reference, status)
	if err != nil {
		if errors.Is(err, database.ErrTerminalStatus) {
			// A retried callback carrying the settled status is acknowledged;
			// anything else cannot move a payment out of confirmed or failed.
			if status == payment.Status {
				c.JSON(http.StatusOK, payment)
				return
			}
			h.logger.Warn("Rejected status transition on settled payment",
				zap.String("reference", req.Reference),
				zap.String("current", string(payment.Status)),
				zap.String("requested", string(status)))
			c.JSON(http.StatusConflict, gin.H{
				"error":  "Payment already settled",
				"status": payment.Status,
			})
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		span.RecordError(err)
		traceID := middleware.GetTraceID(ctx)
		h.logger.Error("Failed to update payment", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	middleware.RecordWebhookUpdate(string(status))

	if status == models.PaymentStatusConfirmed {
		h.issueReceipt(c, payment)
	}

	event := models.PaymentEvent{
		EventType:   "payment_status_changed",
		PaymentID:   payment.ID,
		Reference:   payment.Reference,
		Status:      payment.Status,
		Amount:      payment.Amount,
		CreatedAt:   payment.CreatedAt,
		ConfirmedAt: payment.ConfirmedAt,
		UpdatedAt:   payment.UpdatedAt,
	}
	if err := kafka.PublishPaymentEvent(ctx, h.producer, h.topic, event, h.logger); err != nil {
		// The row is already updated; polling covers subscribers if the feed
		// misses this change.
		span.RecordError(err)
		h.logger.Error("Failed to publish payment event", zap.Error(err))
	}

	c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) issueReceipt(c *gin.Context, payment models.Payment) {
	ctx := c.Request.Context()
	traceID := middleware.GetTraceID(ctx)

	serviceName := payment.RevenueTypeCode
	if rt, err := database.GetRevenueType(ctx, h.db, payment.RevenueTypeCode); err == nil {
		serviceName = rt.Name
	} else if !errors.Is(err, sql.ErrNoRows) {
		h.logger.Warn("Failed to resolve revenue type", zap.String("trace_id", traceID), zap.Error(err))
	}

	receipt, err := receipts.Generate(payment, serviceName)
	if err != nil {
		h.logger.Error("Failed to generate receipt", zap.String("trace_id", traceID), zap.Error(err))
		return
	}
	if err := receipts.Store(ctx, h.db, receipt); err != nil {
		h.logger.Error("Failed to store receipt", zap.String("trace_id", traceID), zap.Error(err))
		return
	}

	event := models.PaymentEvent{
		EventType:   "receipt_generated",
		PaymentID:   payment.ID,
		Reference:   payment.Reference,
		Status:      payment.Status,
		Amount:      payment.Amount,
		CreatedAt:   payment.CreatedAt,
		ConfirmedAt: payment.ConfirmedAt,
		UpdatedAt:   payment.UpdatedAt,
	}
	if err := kafka.PublishPaymentEvent(ctx, h.producer, h.topic, event, h.logger); err != nil {
		h.logger.Error("Failed to publish receipt event", zap.Error(err))
	}

	h.logger.Info("Receipt issued",
		zap.String("trace_id", traceID),
		zap.String("reference", payment.Reference),
		zap.String("receipt_number", receipt.Number),
	)
}
