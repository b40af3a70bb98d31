package model

import "time"

// Booking is created exactly once per confirmed checkout session, as a side
// effect of the payment webhook. Administrators may correct it afterwards;
// nothing else updates it.
type Booking struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Tour      string    `json:"tour" bson:"tour" validate:"required,mongodb"`
	User      string    `json:"user" bson:"user" validate:"required,mongodb"`
	Price     float64   `json:"price" bson:"price" validate:"required,gt=0"`
	Paid      bool      `json:"paid" bson:"paid"`
	StartDate string    `json:"startDate,omitempty" bson:"startDate,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty" bson:"createdAt"`
}

// WebhookEvent is the dedup record for at-least-once webhook delivery: the
// provider's event ID is the _id, so a redelivered event fails the insert
// with a duplicate key and reconciliation no-ops.
type WebhookEvent struct {
	ID         string    `bson:"_id"`
	Type       string    `bson:"type"`
	ReceivedAt time.Time `bson:"receivedAt"`
}
