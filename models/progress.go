package models

import "time"

type ProgressStage string

const (
	StageInitiated        ProgressStage = "initiated"
	StageSentToGateway    ProgressStage = "sent_to_gateway"
	StageBankProcessing   ProgressStage = "bank_processing"
	StageAmountReceived   ProgressStage = "amount_received"
	StageAccountCredited  ProgressStage = "account_credited"
	StageReceiptGenerated ProgressStage = "receipt_generated"
)

type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageProcessing StageStatus = "processing"
	StageCompleted  StageStatus = "completed"
	StageFailed     StageStatus = "failed"
)

// ProgressStep is one of the six ordered settlement stages shown to the
// payer. Steps complete strictly left to right and at most one step is
// processing at a time.
type ProgressStep struct {
	Stage       ProgressStage `json:"stage"`
	Status      StageStatus   `json:"status"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}
