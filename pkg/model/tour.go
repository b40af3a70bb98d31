package model

import "time"

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// StartDate is one departure of a tour. Participants is bumped only through
// the conditional atomic update in the booking reconciliation flow.
type StartDate struct {
	Date         string `json:"date" bson:"date" validate:"required"`
	Participants int    `json:"participants" bson:"participants" validate:"min=0"`
	SoldOut      bool   `json:"soldOut" bson:"soldOut"`
}

type GeoPoint struct {
	Type        string    `json:"type" bson:"type" validate:"omitempty,eq=Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"omitempty,len=2"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Day         int       `json:"day,omitempty" bson:"day,omitempty"`
}

type Tour struct {
	ID              string      `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name            string      `json:"name" bson:"name" validate:"required,min=10,max=40"`
	Slug            string      `json:"slug,omitempty" bson:"slug,omitempty"`
	Duration        int         `json:"duration" bson:"duration" validate:"required,min=1"`
	MaxGroupSize    int         `json:"maxGroupSize" bson:"maxGroupSize" validate:"required,min=1"`
	Difficulty      string      `json:"difficulty" bson:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64     `json:"ratingsAverage" bson:"ratingsAverage" validate:"omitempty,min=1,max=5"`
	RatingsQuantity int         `json:"ratingsQuantity" bson:"ratingsQuantity" validate:"min=0"`
	Price           float64     `json:"price" bson:"price" validate:"required,gt=0"`
	PriceDiscount   float64     `json:"priceDiscount,omitempty" bson:"priceDiscount,omitempty" validate:"omitempty,ltfield=Price"`
	Summary         string      `json:"summary" bson:"summary" validate:"required"`
	Description     string      `json:"description,omitempty" bson:"description,omitempty"`
	ImageCover      string      `json:"imageCover" bson:"imageCover" validate:"required"`
	Images          []string    `json:"images,omitempty" bson:"images,omitempty"`
	StartDates      []StartDate `json:"startDates" bson:"startDates" validate:"omitempty,dive"`
	SecretTour      bool        `json:"-" bson:"secretTour"`
	StartLocation   *GeoPoint   `json:"startLocation,omitempty" bson:"startLocation,omitempty"`
	Locations       []GeoPoint  `json:"locations,omitempty" bson:"locations,omitempty"`
	Guides          []string    `json:"guides,omitempty" bson:"guides,omitempty" validate:"omitempty,dive,mongodb"`
	CreatedAt       time.Time   `json:"createdAt,omitempty" bson:"createdAt"`

	// Populated by an explicit repository step, never stored.
	GuideProfiles []*User `json:"guideProfiles,omitempty" bson:"-"`
}

// DefaultRatingsAverage seeds new tours and is restored when the last review
// for a tour is deleted.
const DefaultRatingsAverage = 4.5
