package fulfillment

import (
	"encoding/json"
	"errors"

	"github.com/kotek/backend/internal/domain/order"
)

// Outcome classifies a fulfillment report
type Outcome string

const (
	OutcomeSuccess        Outcome = "SUCCESS"
	OutcomePartialFailure Outcome = "PARTIAL_FAILURE"
	OutcomeFailure        Outcome = "FAILURE"
)

// Report is the single result shape every public fulfillment operation
// returns. Raw errors never cross this boundary; callers branch on Outcome
// and, when needed, inspect Err with errors.As.
type Report struct {
	Outcome          Outcome         `json:"outcome"`
	Order            *order.Order    `json:"order,omitempty"`
	ProviderResponse json.RawMessage `json:"provider_response,omitempty"`

	// Multi-shipment accounting
	DeletedCount   int      `json:"deleted_count"`
	ValidatedCount int      `json:"validated_count"`
	Succeeded      []string `json:"succeeded,omitempty"`
	Failed         []string `json:"failed,omitempty"`

	// Failure boundary
	FailedAt      string `json:"failed_at,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	Retriable     bool   `json:"retriable"`

	// Compensation outcome; nil when no compensation was in play
	Compensated *bool `json:"compensated,omitempty"`

	Err error `json:"-"`
}

// IsSuccess returns true for a fully successful operation
func (r *Report) IsSuccess() bool {
	return r.Outcome == OutcomeSuccess
}

func successReport(o *order.Order, raw json.RawMessage) *Report {
	return &Report{
		Outcome:          OutcomeSuccess,
		Order:            o,
		ProviderResponse: raw,
	}
}

func partialReport(o *order.Order, err *PartialFailureError) *Report {
	return &Report{
		Outcome:       OutcomePartialFailure,
		Order:         o,
		Succeeded:     err.Succeeded,
		FailedAt:      err.FailedAt,
		FailureReason: err.Err.Error(),
		Retriable:     true,
		Err:           err,
	}
}

func failureReport(err error) *Report {
	r := &Report{
		Outcome:       OutcomeFailure,
		FailureReason: err.Error(),
		Retriable:     IsRetriable(err),
		Err:           err,
	}

	var critical *CriticalInconsistencyError
	if errors.As(err, &critical) {
		compensated := critical.Compensated
		r.Compensated = &compensated
		r.FailedAt = critical.TrackingNumber
	}
	return r
}
