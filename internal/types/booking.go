package types

import (
	"time"

	"github.com/google/uuid"
)

// Booking records a user's purchase of a tour at the price charged.
type Booking struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TourID    uuid.UUID `json:"tour" db:"tour_id"`
	UserID    uuid.UUID `json:"user" db:"user_id"`
	Price     float64   `json:"price" db:"price"`
	Paid      bool      `json:"paid" db:"paid"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type CreateBookingParams struct {
	TourID uuid.UUID `json:"tour"`
	UserID uuid.UUID `json:"user"`
	Price  float64   `json:"price"`
	Paid   *bool     `json:"paid,omitempty"`
}

type UpdateBookingParams struct {
	Price *float64 `json:"price,omitempty"`
	Paid  *bool    `json:"paid,omitempty"`
}
