// Package notify delivers account events to connected clients.
//
// Delivery is at-most-once: an event published while a user has no open
// session is dropped.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the event type
type Kind string

const (
	KindAccountCreated  Kind = "AccountCreated"
	KindAccountDeleted  Kind = "AccountDeleted"
	KindBalanceUpdated  Kind = "BalanceUpdated"
	KindLowBalanceAlert Kind = "LowBalanceAlert"
)

// Direction describes the sign of a balance change
type Direction string

const (
	DirectionIncrease  Direction = "increase"
	DirectionDecrease  Direction = "decrease"
	DirectionUnchanged Direction = "unchanged"
)

// DirectionOf returns the direction of a balance delta
func DirectionOf(delta decimal.Decimal) Direction {
	switch delta.Sign() {
	case 1:
		return DirectionIncrease
	case -1:
		return DirectionDecrease
	default:
		return DirectionUnchanged
	}
}

// Event is the message pushed to a user's sessions
type Event struct {
	Kind            Kind             `json:"kind"`
	UserID          uint             `json:"user_id"`
	AccountID       uint             `json:"account_id,omitempty"`
	AccountName     string           `json:"account_name"`
	Message         string           `json:"message"`
	PreviousBalance *decimal.Decimal `json:"previous_balance,omitempty"`
	NewBalance      *decimal.Decimal `json:"new_balance,omitempty"`
	Difference      *decimal.Decimal `json:"difference,omitempty"`
	Direction       Direction        `json:"direction,omitempty"`
	Threshold       *decimal.Decimal `json:"threshold,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Notifier delivers an event to the user named in it
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, event Event) error

// Notify calls f
func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}
