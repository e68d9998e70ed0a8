package dto

import (
	"time"

	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/usecase"
)

// StatusRequest asks for a transition.
type StatusRequest struct {
	Status      string `json:"status"`
	ForceUpdate bool   `json:"forceUpdate"`
}

// CancelRequest asks for a cancellation. A missing penaltyFree lets the
// server decide from the cancellation window.
type CancelRequest struct {
	PenaltyFree *bool `json:"penaltyFree"`
}

// StatusResponse reports the authoritative status of one order.
type StatusResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// PenaltyResponse describes a charged fee.
type PenaltyResponse struct {
	Amount    float64   `json:"amount"`
	ChargedAt time.Time `json:"chargedAt"`
}

// MutationResponse is returned by every status mutation.
type MutationResponse struct {
	OrderID     string                  `json:"orderId"`
	Previous    string                  `json:"previous,omitempty"`
	Status      string                  `json:"status"`
	Persisted   bool                    `json:"persisted"`
	Event       model.StatusChangeEvent `json:"event"`
	PenaltyFree *bool                   `json:"penaltyFree,omitempty"`
	Penalty     *PenaltyResponse        `json:"penalty,omitempty"`
}

// NewMutationResponse converts a mutation result.
func NewMutationResponse(res usecase.Result) MutationResponse {
	out := MutationResponse{
		OrderID:     res.OrderID,
		Previous:    string(res.Previous),
		Status:      string(res.Status),
		Persisted:   res.Persisted,
		Event:       res.Event,
		PenaltyFree: res.PenaltyFree,
	}
	if res.Penalty != nil {
		out.Penalty = &PenaltyResponse{Amount: res.Penalty.Amount, ChargedAt: res.Penalty.ChargedAt}
	}
	return out
}
