package models

import "time"

// ReminderRecord is the append-only dispatch log, one row per channel
// attempted. Rows are never mutated after insert.
type ReminderRecord struct {
	ID           string    `json:"id"`
	PaymentID    int       `json:"payment_id"`
	ReminderType string    `json:"reminder_type"` // e.g. upcoming_7_days, overdue_30_days
	Channel      string    `json:"channel"`
	SentAt       time.Time `json:"sent_at"`
	Delivered    bool      `json:"delivered"`
	DayBucket    time.Time `json:"day_bucket"`
}
