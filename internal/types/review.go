package types

import (
	"time"

	"github.com/google/uuid"
)

// Review belongs to one tour and one user; the pair is unique so a user can
// review a tour at most once.
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Review    string    `json:"review" db:"review"`
	Rating    int       `json:"rating" db:"rating"`
	TourID    uuid.UUID `json:"tour" db:"tour_id"`
	UserID    uuid.UUID `json:"user" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CreateReviewParams carries the review body. Tour and User are filled from
// the route and the authenticated principal on nested creation, so clients
// may omit them there.
type CreateReviewParams struct {
	Review string    `json:"review"`
	Rating int       `json:"rating"`
	TourID uuid.UUID `json:"tour,omitempty"`
	UserID uuid.UUID `json:"user,omitempty"`
}

type UpdateReviewParams struct {
	Review *string `json:"review,omitempty"`
	Rating *int    `json:"rating,omitempty"`
}

// RatingStats is the exact aggregate over a tour's current review set.
type RatingStats struct {
	Quantity int
	Average  float64
}
