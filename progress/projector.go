// Package progress maps a payment's persisted gateway status onto the six
// ordered settlement stages shown to the payer.
package progress

import (
	"revenue-svc/models"
)

// NumStages is the fixed length of the settlement timeline.
const NumStages = 6

// Stages lists the settlement timeline in completion order.
var Stages = [NumStages]models.ProgressStage{
	models.StageInitiated,
	models.StageSentToGateway,
	models.StageBankProcessing,
	models.StageAmountReceived,
	models.StageAccountCredited,
	models.StageReceiptGenerated,
}

// FailureMessage is the fixed user-facing text for a failed payment.
const FailureMessage = "Payment failed. Please try again or contact support."

// Project converts a payment's status and timestamps into the six ordered
// progress steps and an overall percent. It is total over its input: an
// unrecognized status is treated as pending rather than rejected.
//
// A pure projection of a failed payment can only prove the first stage
// complete (created_at is always set), so failure lands on stage 1. The
// Tracker refines this using its last non-terminal observation.
func Project(p models.Payment) ([NumStages]models.ProgressStep, int) {
	var steps [NumStages]models.ProgressStep
	for i := range steps {
		steps[i] = models.ProgressStep{Stage: Stages[i], Status: models.StagePending}
	}

	created := p.CreatedAt

	switch p.Status {
	case models.PaymentStatusProcessing:
		steps[0].Status = models.StageCompleted
		steps[0].CompletedAt = &created
		steps[1].Status = models.StageCompleted
		steps[2].Status = models.StageProcessing

	case models.PaymentStatusConfirmed:
		settled := p.ConfirmedAt
		if settled == nil {
			t := p.UpdatedAt
			settled = &t
		}
		for i := range steps {
			steps[i].Status = models.StageCompleted
		}
		steps[0].CompletedAt = &created
		steps[NumStages-1].CompletedAt = settled

	case models.PaymentStatusFailed:
		steps[0].Status = models.StageCompleted
		steps[0].CompletedAt = &created
		steps[1].Status = models.StageFailed

	default: // pending, and anything unrecognized
		steps[0].Status = models.StageCompleted
		steps[0].CompletedAt = &created
		steps[1].Status = models.StageProcessing
	}

	return steps, percentOf(steps)
}

func percentOf(steps [NumStages]models.ProgressStep) int {
	completed := 0
	for _, s := range steps {
		if s.Status == models.StageCompleted {
			completed++
		}
	}
	return completed * 100 / NumStages
}
