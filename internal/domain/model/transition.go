package model

import "time"

// TransitionOutcome describes what happened to a board transition attempt.
type TransitionOutcome string

const (
	TransitionApplied    TransitionOutcome = "applied"
	TransitionRolledBack TransitionOutcome = "rolled_back"
	TransitionRejected   TransitionOutcome = "rejected"
)

// TransitionRecord is a journal entry for a status change requested from the board.
type TransitionRecord struct {
	ID        string            `json:"id"`
	OrderID   int64             `json:"order_id"`
	From      OrderStatus       `json:"from"`
	To        OrderStatus       `json:"to"`
	Outcome   TransitionOutcome `json:"outcome"`
	Reason    string            `json:"reason,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
