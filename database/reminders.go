package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"revenue-svc/models"
)

const insertReminderQuery = `INSERT INTO reminders (id, payment_id, reminder_type, channel, sent_at, delivered, day_bucket) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (payment_id, reminder_type, channel, day_bucket) DO NOTHING`

// InsertReminder appends one row to the dispatch log. The day-bucket unique
// index absorbs concurrent duplicates.
func InsertReminder(ctx context.Context, db *sql.DB, r models.ReminderRecord) error {
	_, err := db.ExecContext(ctx, insertReminderQuery,
		r.ID, r.PaymentID, r.ReminderType, r.Channel, r.SentAt, r.Delivered, r.DayBucket)
	if err != nil {
		return fmt.Errorf("failed to insert reminder record: %w", err)
	}
	return nil
}

// HasRecentReminder reports whether a reminder of the given type was sent for
// the payment within the trailing 24 hours. Used as the de-duplication guard
// when redis is unavailable.
func HasRecentReminder(ctx context.Context, db *sql.DB, paymentID int, reminderType string, since time.Time) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM reminders WHERE payment_id = $1 AND reminder_type = $2 AND sent_at > $3)",
		paymentID, reminderType, since,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check recent reminders: %w", err)
	}
	return exists, nil
}
