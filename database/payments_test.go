package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"revenue-svc/models"
)

var paymentTestColumns = []string{
	"id", "reference", "payer_name", "payer_phone", "payer_email",
	"amount", "revenue_type_code", "status", "created_at", "confirmed_at", "updated_at",
}

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUpdatePaymentStatus_AppliesToNonTerminalRow(t *testing.T) {
	db, mock := newTestDB(t)

	created := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)UPDATE payments.*status NOT IN \('confirmed', 'failed'\)`).
		WithArgs("RRR-1001", "processing").
		WillReturnRows(sqlmock.NewRows(paymentTestColumns).
			AddRow(1, "RRR-1001", "Amina Bello", "+2348030000001", "amina@example.com",
				75000.0, "BPL", "processing", created, nil, created.Add(time.Minute)))

	p, err := UpdatePaymentStatus(context.Background(), db, "RRR-1001", models.PaymentStatusProcessing)
	if err != nil {
		t.Fatalf("UpdatePaymentStatus returned error: %v", err)
	}
	if p.Status != models.PaymentStatusProcessing {
		t.Errorf("expected processing, got %s", p.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestUpdatePaymentStatus_TerminalRowRejected(t *testing.T) {
	db, mock := newTestDB(t)

	created := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	confirmed := created.Add(2 * time.Minute)

	mock.ExpectQuery(`(?s)UPDATE payments.*status NOT IN \('confirmed', 'failed'\)`).
		WithArgs("RRR-1001", "pending").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT (.+) FROM payments WHERE reference = \$1`).
		WithArgs("RRR-1001").
		WillReturnRows(sqlmock.NewRows(paymentTestColumns).
			AddRow(1, "RRR-1001", "Amina Bello", "+2348030000001", "amina@example.com",
				75000.0, "BPL", "confirmed", created, confirmed, confirmed))

	p, err := UpdatePaymentStatus(context.Background(), db, "RRR-1001", models.PaymentStatusPending)
	if !errors.Is(err, ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
	if p.Status != models.PaymentStatusConfirmed {
		t.Errorf("expected the settled row back, got status %s", p.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestUpdatePaymentStatus_UnknownReference(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(`(?s)UPDATE payments.*status NOT IN \('confirmed', 'failed'\)`).
		WithArgs("RRR-9999", "confirmed").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT (.+) FROM payments WHERE reference = \$1`).
		WithArgs("RRR-9999").
		WillReturnError(sql.ErrNoRows)

	_, err := UpdatePaymentStatus(context.Background(), db, "RRR-9999", models.PaymentStatusConfirmed)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
