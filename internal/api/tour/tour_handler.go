package tour

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/crud"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/query"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

// Spec declares which tour fields clients may filter, sort and select on.
var Spec = query.Spec{
	Table: "tours",
	Columns: map[string]string{
		"name":            "name",
		"slug":            "slug",
		"duration":        "duration",
		"maxGroupSize":    "max_group_size",
		"difficulty":      "difficulty",
		"ratingsAverage":  "ratings_average",
		"ratingsQuantity": "ratings_quantity",
		"price":           "price",
		"summary":         "summary",
		"createdAt":       "created_at",
	},
	Selectable: []string{
		"id", "name", "slug", "duration", "max_group_size", "difficulty",
		"ratings_average", "ratings_quantity", "price", "price_discount",
		"summary", "description", "image_cover", "images", "start_dates",
		"start_lat", "start_lng", "start_location_description",
		"created_at", "updated_at",
	},
	DefaultSort: "-createdAt",
}

const (
	metersPerMile      = 1609.344
	metersPerKilometer = 1000.0
)

type Handler struct {
	logger  *slog.Logger
	service Service

	production bool
	resource   *crud.Resource[types.Tour, types.CreateTourParams, types.UpdateTourParams]
}

func NewHandler(service Service, production bool, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		production: production,
		resource: &crud.Resource[types.Tour, types.CreateTourParams, types.UpdateTourParams]{
			Entity:     "tour",
			Store:      service,
			Spec:       Spec,
			Logger:     logger,
			Production: production,
		},
	}
}

func (h *Handler) ListTours() http.HandlerFunc { return h.resource.ListAll() }
func (h *Handler) GetTour() http.HandlerFunc { return h.resource.GetOne() }
func (h *Handler) CreateTour() http.HandlerFunc { return h.resource.CreateOne() }
func (h *Handler) UpdateTour() http.HandlerFunc { return h.resource.UpdateOne() }
func (h *Handler) DeleteTour() http.HandlerFunc { return h.resource.DeleteOne() }

// AliasTopCheap presets the query string for the top-5-cheap shortcut and
// delegates to the regular list handler. Client-supplied control keys are
// overridden; extra filters still apply.
func (h *Handler) AliasTopCheap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values := r.URL.Query()
		values.Set("limit", "5")
		values.Set("sort", "-ratingsAverage,price")
		values.Set("fields", "name,price,ratingsAverage,summary,difficulty")

		u := *r.URL
		u.RawQuery = values.Encode()
		r2 := r.Clone(r.Context())
		r2.URL = &u
		next(w, r2)
	}
}

func (h *Handler) TourStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}
	api.WriteSuccess(w, r, http.StatusOK, map[string]any{"stats": stats})
}

func (h *Handler) MonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1900 || year > 3000 {
		api.HandleError(w, r, h.logger, h.production,
			api.NewError(http.StatusBadRequest, "please provide a valid year"))
		return
	}

	plan, err := h.service.MonthlyPlan(r.Context(), year)
	if err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}
	api.WriteSuccess(w, r, http.StatusOK, map[string]any{"plan": plan})
}

// parseLatLng splits a "lat,lng" path segment.
func parseLatLng(raw string) (lat, lng float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, api.NewError(http.StatusBadRequest,
			"please provide latitude and longitude in the format lat,lng")
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, api.NewError(http.StatusBadRequest,
			"please provide latitude and longitude in the format lat,lng")
	}
	return lat, lng, nil
}

// metersPerUnit resolves a distance unit path segment.
func metersPerUnit(unit string) (float64, error) {
	switch unit {
	case "mi":
		return metersPerMile, nil
	case "km":
		return metersPerKilometer, nil
	}
	return 0, api.NewError(http.StatusBadRequest, "unit must be either mi or km")
}

// ToursWithin handles /tours-within/{distance}/center/{latlng}/unit/{unit}.
func (h *Handler) ToursWithin(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}

	distance, err := strconv.ParseFloat(chi.URLParam(r, "distance"), 64)
	if err != nil || distance <= 0 {
		api.HandleError(w, r, h.logger, h.production,
			api.NewError(http.StatusBadRequest, "distance must be a positive number"))
		return
	}

	perUnit, err := metersPerUnit(chi.URLParam(r, "unit"))
	if err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}

	tours, err := h.service.ToursWithin(r.Context(), lat, lng, distance*perUnit)
	if err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}
	api.WriteList(w, r, len(tours), map[string]any{"tours": tours})
}

// Distances handles /distances/{latlng}/unit/{unit}.
func (h *Handler) Distances(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}

	perUnit, err := metersPerUnit(chi.URLParam(r, "unit"))
	if err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}

	distances, err := h.service.Distances(r.Context(), lat, lng)
	if err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}
	// Distances arrive in meters; convert to the requested unit.
	for i := range distances {
		distances[i].Distance /= perUnit
	}
	api.WriteSuccess(w, r, http.StatusOK, map[string]any{"distances": distances})
}
