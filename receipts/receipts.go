// Package receipts renders and stores the payment receipt issued when a
// payment is confirmed.
package receipts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"

	"revenue-svc/models"
	"revenue-svc/reminder"
)

type Receipt struct {
	Number      string    `json:"receipt_number"`
	Reference   string    `json:"payment_reference"`
	PayerName   string    `json:"payer_name"`
	ServiceName string    `json:"service_name"`
	Amount      float64   `json:"amount"`
	ConfirmedAt time.Time `json:"confirmed_at"`
	QRPayload   string    `json:"qr_payload"`
	HTML        string    `json:"-"`
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><title>Payment Receipt {{.Number}}</title></head>
<body>
  <h1>Official Payment Receipt</h1>
  <p>Receipt No: <strong>{{.Number}}</strong></p>
  <p>Reference: {{.Reference}}</p>
  <p>Payer: {{.PayerName}}</p>
  <p>Service: {{.ServiceName}}</p>
  <p>Amount: NGN {{.AmountDisplay}}</p>
  <p>Confirmed: {{.ConfirmedDisplay}}</p>
  <p>Verification: {{.QRPayload}}</p>
</body>
</html>
`))

// Generate builds the receipt for a confirmed payment. The QR payload is a
// verification string (reference, amount, confirmation time, checksum) that
// the portal renders as a QR code.
func Generate(p models.Payment, serviceName string) (Receipt, error) {
	if p.Status != models.PaymentStatusConfirmed {
		return Receipt{}, fmt.Errorf("cannot generate receipt for status %q", p.Status)
	}

	confirmedAt := p.UpdatedAt
	if p.ConfirmedAt != nil {
		confirmedAt = *p.ConfirmedAt
	}

	r := Receipt{
		Number:      newReceiptNumber(),
		Reference:   p.Reference,
		PayerName:   p.PayerName,
		ServiceName: serviceName,
		Amount:      p.Amount,
		ConfirmedAt: confirmedAt,
		QRPayload:   QRPayload(p.Reference, p.Amount, confirmedAt),
	}

	var buf bytes.Buffer
	err := receiptTemplate.Execute(&buf, struct {
		Receipt
		AmountDisplay    string
		ConfirmedDisplay string
	}{
		Receipt:          r,
		AmountDisplay:    reminder.FormatAmount(r.Amount),
		ConfirmedDisplay: confirmedAt.Format(time.RFC1123),
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to render receipt: %w", err)
	}
	r.HTML = buf.String()

	return r, nil
}

// Store persists the rendered receipt.
func Store(ctx context.Context, db *sql.DB, r Receipt) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO receipts (receipt_number, payment_reference, qr_payload, html, generated_at) VALUES ($1, $2, $3, $4, $5)",
		r.Number, r.Reference, r.QRPayload, r.HTML, r.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store receipt: %w", err)
	}
	return nil
}

// QRPayload encodes the verification string carried by the receipt QR code.
func QRPayload(reference string, amount float64, confirmedAt time.Time) string {
	base := fmt.Sprintf("%s|%s|%s", reference, reminder.FormatAmount(amount), confirmedAt.UTC().Format(time.RFC3339))
	return base + "|" + checksum(base)
}

// VerifyPayload reports whether a scanned payload's checksum matches its body.
func VerifyPayload(payload string) bool {
	idx := strings.LastIndex(payload, "|")
	if idx < 0 {
		return false
	}
	return checksum(payload[:idx]) == payload[idx+1:]
}

func checksum(base string) string {
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])[:12]
}

func newReceiptNumber() string {
	return "RCP-" + strings.ToUpper(uuid.New().String()[:8])
}
