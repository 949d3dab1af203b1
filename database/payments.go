package database

import (
	"context"
	"database/sql"
	"errors"

	"revenue-svc/models"
)

// ErrTerminalStatus signals a rejected status transition: confirmed and
// failed rows have no further transitions, so a late or retried gateway
// callback can never rewrite a settled payment.
var ErrTerminalStatus = errors.New("payment status is terminal")

const paymentColumns = `id, reference, payer_name, COALESCE(payer_phone, ''), COALESCE(payer_email, ''), amount, revenue_type_code, status, created_at, confirmed_at, updated_at`

// GetPaymentByReference loads one payment row by its gateway reference.
func GetPaymentByReference(ctx context.Context, db *sql.DB, reference string) (models.Payment, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE reference = $1",
		reference,
	)
	return scanPayment(row)
}

func scanPayment(row *sql.Row) (models.Payment, error) {
	var p models.Payment
	var confirmedAt sql.NullTime
	err := row.Scan(
		&p.ID, &p.Reference, &p.PayerName, &p.PayerPhone, &p.PayerEmail,
		&p.Amount, &p.RevenueTypeCode, &p.Status, &p.CreatedAt, &confirmedAt, &p.UpdatedAt,
	)
	if err != nil {
		return models.Payment{}, err
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		p.ConfirmedAt = &t
	}
	return p, nil
}

// UpdatePaymentStatus applies a gateway status change and returns the updated
// row. confirmed_at is stamped on the first transition into confirmed and
// never overwritten afterwards. The update only matches non-terminal rows;
// when the payment is already confirmed or failed the current row is returned
// with ErrTerminalStatus.
func UpdatePaymentStatus(ctx context.Context, db *sql.DB, reference string, status models.PaymentStatus) (models.Payment, error) {
	row := db.QueryRowContext(ctx,
		`UPDATE payments
		 SET status = $2,
		     confirmed_at = CASE WHEN $2 = 'confirmed' THEN COALESCE(confirmed_at, CURRENT_TIMESTAMP) ELSE confirmed_at END,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE reference = $1 AND status NOT IN ('confirmed', 'failed')
		 RETURNING `+paymentColumns,
		reference, status,
	)
	p, err := scanPayment(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, err
	}

	// No row matched: the payment is either unknown or already settled.
	current, lookupErr := GetPaymentByReference(ctx, db, reference)
	if lookupErr != nil {
		return models.Payment{}, lookupErr
	}
	if current.Status.IsTerminal() {
		return current, ErrTerminalStatus
	}
	return models.Payment{}, err
}
