package models

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusConfirmed  PaymentStatus = "confirmed"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// IsTerminal reports whether the status has no further transitions.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusFailed
}

// ParsePaymentStatus validates a raw status string from the gateway.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch PaymentStatus(raw) {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusConfirmed, PaymentStatusFailed:
		return PaymentStatus(raw), true
	}
	return PaymentStatusPending, false
}

type Payment struct {
	ID                int           `json:"id"`
	Reference         string        `json:"reference"`
	PayerName         string        `json:"payer_name"`
	PayerPhone        string        `json:"payer_phone,omitempty"`
	PayerEmail        string        `json:"payer_email,omitempty"`
	Amount            float64       `json:"amount"`
	RevenueTypeCode   string        `json:"revenue_type_code"`
	IsRecurring       bool          `json:"is_recurring"`
	RenewalPeriodDays int           `json:"renewal_period_days"`
	Status            PaymentStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	ConfirmedAt       *time.Time    `json:"confirmed_at,omitempty"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type RevenueType struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	IsRecurring       bool   `json:"is_recurring"`
	RenewalPeriodDays int    `json:"renewal_period_days"`
}

type PaymentEvent struct {
	EventType   string        `json:"event_type"` // payment_status_changed, receipt_generated
	PaymentID   int           `json:"payment_id"`
	Reference   string        `json:"reference"`
	Status      PaymentStatus `json:"status"`
	Amount      float64       `json:"amount"`
	CreatedAt   time.Time     `json:"created_at"`
	ConfirmedAt *time.Time    `json:"confirmed_at,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Payment rebuilds the payment shape carried by a status-change event.
func (e PaymentEvent) Payment() Payment {
	return Payment{
		ID:          e.PaymentID,
		Reference:   e.Reference,
		Status:      e.Status,
		Amount:      e.Amount,
		CreatedAt:   e.CreatedAt,
		ConfirmedAt: e.ConfirmedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// GatewayNotification is the payload the payment gateway posts to the
// status webhook.
type GatewayNotification struct {
	Reference     string `json:"reference" binding:"required"`
	Status        string `json:"status" binding:"required"`
	TransactionID string `json:"transaction_id"`
}
