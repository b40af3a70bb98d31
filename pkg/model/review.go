package model

import "time"

// Review references exactly one tour and one user; the (tour, user) pair is
// unique (compound index created by the migrations).
type Review struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Review    string    `json:"review" bson:"review" validate:"required"`
	Rating    float64   `json:"rating" bson:"rating" validate:"required,min=1,max=5"`
	Tour      string    `json:"tour" bson:"tour" validate:"required,mongodb"`
	User      string    `json:"user" bson:"user" validate:"required,mongodb"`
	CreatedAt time.Time `json:"createdAt,omitempty" bson:"createdAt"`

	// Populated by an explicit repository step, never stored.
	Author *User `json:"author,omitempty" bson:"-"`
}
