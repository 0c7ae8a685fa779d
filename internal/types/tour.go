package types

import (
	"time"

	"github.com/google/uuid"
)

// Tour is the primary bookable resource. RatingsAverage and RatingsQuantity
// are denormalized aggregates over the tour's reviews, recomputed by the
// review service after every review write.
type Tour struct {
	ID                       uuid.UUID   `json:"id" db:"id"`
	Name                     string      `json:"name" db:"name"`
	Slug                     string      `json:"slug" db:"slug"`
	Duration                 int         `json:"duration" db:"duration"`
	MaxGroupSize             int         `json:"maxGroupSize" db:"max_group_size"`
	Difficulty               string      `json:"difficulty" db:"difficulty"`
	RatingsAverage           float64     `json:"ratingsAverage" db:"ratings_average"`
	RatingsQuantity          int         `json:"ratingsQuantity" db:"ratings_quantity"`
	Price                    float64     `json:"price" db:"price"`
	PriceDiscount            *float64    `json:"priceDiscount,omitempty" db:"price_discount"`
	Summary                  string      `json:"summary" db:"summary"`
	Description              *string     `json:"description,omitempty" db:"description"`
	ImageCover               *string     `json:"imageCover,omitempty" db:"image_cover"`
	Images                   []string    `json:"images,omitempty" db:"images"`
	StartDates               []time.Time `json:"startDates,omitempty" db:"start_dates"`
	StartLat                 *float64    `json:"startLat,omitempty" db:"start_lat"`
	StartLng                 *float64    `json:"startLng,omitempty" db:"start_lng"`
	StartLocationDescription *string     `json:"startLocationDescription,omitempty" db:"start_location_description"`
	Reviews                  []Review    `json:"reviews,omitempty" db:"-"` // populated on expansion only
	CreatedAt                time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt                time.Time   `json:"updatedAt" db:"updated_at"`
}

type CreateTourParams struct {
	Name                     string      `json:"name"`
	Duration                 int         `json:"duration"`
	MaxGroupSize             int         `json:"maxGroupSize"`
	Difficulty               string      `json:"difficulty"`
	Price                    float64     `json:"price"`
	PriceDiscount            *float64    `json:"priceDiscount,omitempty"`
	Summary                  string      `json:"summary"`
	Description              *string     `json:"description,omitempty"`
	ImageCover               *string     `json:"imageCover,omitempty"`
	Images                   []string    `json:"images,omitempty"`
	StartDates               []time.Time `json:"startDates,omitempty"`
	StartLat                 *float64    `json:"startLat,omitempty"`
	StartLng                 *float64    `json:"startLng,omitempty"`
	StartLocationDescription *string     `json:"startLocationDescription,omitempty"`
}

type UpdateTourParams struct {
	Name                     *string      `json:"name,omitempty"`
	Duration                 *int         `json:"duration,omitempty"`
	MaxGroupSize             *int         `json:"maxGroupSize,omitempty"`
	Difficulty               *string      `json:"difficulty,omitempty"`
	Price                    *float64     `json:"price,omitempty"`
	PriceDiscount            *float64     `json:"priceDiscount,omitempty"`
	Summary                  *string      `json:"summary,omitempty"`
	Description              *string      `json:"description,omitempty"`
	ImageCover               *string      `json:"imageCover,omitempty"`
	Images                   *[]string    `json:"images,omitempty"`
	StartDates               *[]time.Time `json:"startDates,omitempty"`
	StartLat                 *float64     `json:"startLat,omitempty"`
	StartLng                 *float64     `json:"startLng,omitempty"`
	StartLocationDescription *string      `json:"startLocationDescription,omitempty"`
}

// TourStats is one aggregate row grouped by difficulty.
type TourStats struct {
	Difficulty string  `json:"difficulty" db:"difficulty"`
	NumTours   int     `json:"numTours" db:"num_tours"`
	NumRatings int     `json:"numRatings" db:"num_ratings"`
	AvgRating  float64 `json:"avgRating" db:"avg_rating"`
	AvgPrice   float64 `json:"avgPrice" db:"avg_price"`
	MinPrice   float64 `json:"minPrice" db:"min_price"`
	MaxPrice   float64 `json:"maxPrice" db:"max_price"`
}

// MonthlyPlanEntry counts tour starts per calendar month of one year.
type MonthlyPlanEntry struct {
	Month         int      `json:"month" db:"month"`
	NumTourStarts int      `json:"numTourStarts" db:"num_tour_starts"`
	Tours         []string `json:"tours" db:"tours"`
}

// TourDistance is a tour with its distance from a reference point.
type TourDistance struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	Distance float64   `json:"distance" db:"distance"`
}
