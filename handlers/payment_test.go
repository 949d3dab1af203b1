package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Mock Kafka producer for testing.
type mockProducer struct {
	sent []*sarama.ProducerMessage
}

func (m *mockProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	m.sent = append(m.sent, msg)
	return 0, int64(len(m.sent)), nil
}

func (m *mockProducer) SendMessages(msgs []*sarama.ProducerMessage) error { return nil }
func (m *mockProducer) Close() error                                      { return nil }
func (m *mockProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnFlagReady
}
func (m *mockProducer) IsTransactional() bool { return false }
func (m *mockProducer) BeginTxn() error       { return nil }
func (m *mockProducer) CommitTxn() error      { return nil }
func (m *mockProducer) AbortTxn() error       { return nil }
func (m *mockProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupId string, metadata *string) error {
	return nil
}
func (m *mockProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupId string) error {
	return nil
}

var paymentColumns = []string{
	"id", "reference", "payer_name", "payer_phone", "payer_email",
	"amount", "revenue_type_code", "status", "created_at", "confirmed_at", "updated_at",
}

func setupPaymentTest(t *testing.T) (*PaymentHandler, *mockProducer, sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	producer := &mockProducer{}
	handler := NewPaymentHandler(db, producer, "payment_events", logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/payments/:reference", handler.GetPayment)
	router.GET("/payments/:reference/progress", handler.GetPaymentProgress)
	router.POST("/payments/webhook", handler.Webhook)

	return handler, producer, mock, router
}

func TestPaymentHandler_GetPaymentProgress_Confirmed(t *testing.T) {
	_, _, mock, router := setupPaymentTest(t)

	created := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	confirmed := created.Add(2 * time.Minute)
	rows := sqlmock.NewRows(paymentColumns).
		AddRow(1, "RRR-1001", "Amina Bello", "+2348030000001", "amina@example.com",
			75000.0, "BPL", "confirmed", created, confirmed, confirmed)

	mock.ExpectQuery("SELECT (.+) FROM payments WHERE reference = \\$1").
		WithArgs("RRR-1001").
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/payments/RRR-1001/progress", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		Percent int `json:"percent"`
		Steps   []struct {
			Stage  string `json:"stage"`
			Status string `json:"status"`
		} `json:"steps"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Percent != 100 {
		t.Errorf("Expected percent 100, got %d", resp.Percent)
	}
	if len(resp.Steps) != 6 {
		t.Fatalf("Expected 6 steps, got %d", len(resp.Steps))
	}
	for i, step := range resp.Steps {
		if step.Status != "completed" {
			t.Errorf("Step %d (%s): expected completed, got %s", i, step.Stage, step.Status)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPaymentHandler_GetPayment_NotFound(t *testing.T) {
	_, _, mock, router := setupPaymentTest(t)

	mock.ExpectQuery("SELECT (.+) FROM payments WHERE reference = \\$1").
		WithArgs("RRR-9999").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/payments/RRR-9999", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPaymentHandler_Webhook_Processing(t *testing.T) {
	_, producer, mock, router := setupPaymentTest(t)

	created := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(paymentColumns).
		AddRow(1, "RRR-1001", "Amina Bello", "+2348030000001", "amina@example.com",
			75000.0, "BPL", "processing", created, nil, created.Add(time.Minute))

	mock.ExpectQuery("UPDATE payments").
		WithArgs("RRR-1001", "processing").
		WillReturnRows(rows)

	body, _ := json.Marshal(map[string]string{"reference": "RRR-1001", "status": "processing"})
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if len(producer.sent) != 1 {
		t.Errorf("Expected one published event, got %d", len(producer.sent))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPaymentHandler_Webhook_ConfirmedIssuesReceipt(t *testing.T) {
	_, producer, mock, router := setupPaymentTest(t)

	created := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	confirmed := created.Add(2 * time.Minute)
	rows := sqlmock.NewRows(paymentColumns).
		AddRow(1, "RRR-1001", "Amina Bello", "+2348030000001", "amina@example.com",
			75000.0, "BPL", "confirmed", created, confirmed, confirmed)

	mock.ExpectQuery("UPDATE payments").
		WithArgs("RRR-1001", "confirmed").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT code, name, is_recurring, renewal_period_days FROM revenue_types").
		WithArgs("BPL").
		WillReturnRows(sqlmock.NewRows([]string{"code", "name", "is_recurring", "renewal_period_days"}).
			AddRow("BPL", "Business Premises Levy", true, 365))
	mock.ExpectExec("INSERT INTO receipts").
		WillReturnResult(sqlmock.NewResult(1, 1))

	body, _ := json.Marshal(map[string]string{"reference": "RRR-1001", "status": "confirmed"})
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	// receipt_generated plus payment_status_changed
	if len(producer.sent) != 2 {
		t.Errorf("Expected two published events, got %d", len(producer.sent))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPaymentHandler_Webhook_SettledPaymentNotRegressed(t *testing.T) {
	_, producer, mock, router := setupPaymentTest(t)

	created := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	confirmed := created.Add(2 * time.Minute)

	// The guarded UPDATE matches no row for a settled payment; the handler
	// then loads the current row and refuses the transition.
	mock.ExpectQuery("UPDATE payments").
		WithArgs("RRR-1001", "pending").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM payments WHERE reference = \\$1").
		WithArgs("RRR-1001").
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow(1, "RRR-1001", "Amina Bello", "+2348030000001", "amina@example.com",
				75000.0, "BPL", "confirmed", created, confirmed, confirmed))

	body, _ := json.Marshal(map[string]string{"reference": "RRR-1001", "status": "pending"})
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}
	if len(producer.sent) != 0 {
		t.Errorf("Expected no published events for a rejected transition, got %d", len(producer.sent))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPaymentHandler_Webhook_RetriedConfirmationAcknowledged(t *testing.T) {
	_, producer, mock, router := setupPaymentTest(t)

	created := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	confirmed := created.Add(2 * time.Minute)

	mock.ExpectQuery("UPDATE payments").
		WithArgs("RRR-1001", "confirmed").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM payments WHERE reference = \\$1").
		WithArgs("RRR-1001").
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow(1, "RRR-1001", "Amina Bello", "+2348030000001", "amina@example.com",
				75000.0, "BPL", "confirmed", created, confirmed, confirmed))

	body, _ := json.Marshal(map[string]string{"reference": "RRR-1001", "status": "confirmed"})
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// An idempotent gateway retry: acknowledged, but no second receipt and
	// no re-published events.
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if len(producer.sent) != 0 {
		t.Errorf("Expected no published events for a retried confirmation, got %d", len(producer.sent))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPaymentHandler_Webhook_UnknownStatusRejected(t *testing.T) {
	_, producer, mock, router := setupPaymentTest(t)

	body, _ := json.Marshal(map[string]string{"reference": "RRR-1001", "status": "exploded"})
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if len(producer.sent) != 0 {
		t.Errorf("Expected no published events, got %d", len(producer.sent))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
