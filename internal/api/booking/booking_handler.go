package booking

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-tour-bookings/app/observability/metrics"
	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/auth"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/crud"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/query"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/tour"
	"github.com/FACorreiaa/go-tour-bookings/internal/payment"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

// Spec declares the queryable booking fields.
var Spec = query.Spec{
	Table: "bookings",
	Columns: map[string]string{
		"tour":      "tour_id",
		"user":      "user_id",
		"price":     "price",
		"paid":      "paid",
		"createdAt": "created_at",
	},
	Selectable: []string{
		"id", "tour_id", "user_id", "price", "paid", "created_at",
	},
	DefaultSort: "-createdAt",
}

type Handler struct {
	logger   *slog.Logger
	repo     Repository
	tours    tour.Service
	provider payment.SessionProvider

	frontendURL string
	production  bool
	resource    *crud.Resource[types.Booking, types.CreateBookingParams, types.UpdateBookingParams]
}

func NewHandler(repo Repository, tours tour.Service, provider payment.SessionProvider,
	frontendURL string, production bool, logger *slog.Logger) *Handler {
	return &Handler{
		logger:      logger,
		repo:        repo,
		tours:       tours,
		provider:    provider,
		frontendURL: frontendURL,
		production:  production,
		resource: &crud.Resource[types.Booking, types.CreateBookingParams, types.UpdateBookingParams]{
			Entity:     "booking",
			Store:      repo,
			Spec:       Spec,
			Logger:     logger,
			Production: production,
		},
	}
}

func (h *Handler) ListBookings() http.HandlerFunc { return h.resource.ListAll() }
func (h *Handler) GetBooking() http.HandlerFunc { return h.resource.GetOne() }
func (h *Handler) CreateBooking() http.HandlerFunc { return h.resource.CreateOne() }
func (h *Handler) UpdateBooking() http.HandlerFunc { return h.resource.UpdateOne() }
func (h *Handler) DeleteBooking() http.HandlerFunc { return h.resource.DeleteOne() }

// CheckoutSession creates a payment session for a tour and records the
// booking as unpaid. The booking flips to paid once the payment confirmation
// lands (through the admin update route for the local provider).
func (h *Handler) CheckoutSession(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "CheckoutSession"))

	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		api.HandleError(w, r, l, h.production,
			api.NewError(http.StatusUnauthorized, "you are not logged in, please log in to get access"))
		return
	}

	tourID, err := uuid.Parse(chi.URLParam(r, "tourID"))
	if err != nil {
		api.HandleError(w, r, l, h.production, api.NewError(http.StatusBadRequest, "invalid id in URL"))
		return
	}

	bookedTour, err := h.tours.Get(r.Context(), tourID)
	if err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	session, err := h.provider.CreateCheckoutSession(r.Context(), payment.SessionParams{
		TourID:      bookedTour.ID,
		TourName:    bookedTour.Name,
		UserID:      user.ID,
		UserEmail:   user.Email,
		AmountCents: int64(math.Round(bookedTour.Price * 100)),
		Currency:    "usd",
		SuccessURL:  fmt.Sprintf("%s/my-bookings", h.frontendURL),
		CancelURL:   fmt.Sprintf("%s/tour/%s", h.frontendURL, bookedTour.Slug),
	})
	if err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	booking, err := h.repo.Create(r.Context(), types.CreateBookingParams{
		TourID: bookedTour.ID,
		UserID: user.ID,
		Price:  bookedTour.Price,
	})
	if err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	metrics.Get().BookingsTotal.Add(r.Context(), 1)
	api.WriteSuccess(w, r, http.StatusCreated, map[string]any{
		"session": session,
		"booking": booking,
	})
}

// MyBookings lists the authenticated principal's own bookings.
func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "MyBookings"))

	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		api.HandleError(w, r, l, h.production,
			api.NewError(http.StatusUnauthorized, "you are not logged in, please log in to get access"))
		return
	}

	q := query.Parse(r.URL.Query(), Spec)
	bookings, err := h.repo.List(r.Context(), &query.Scope{Column: "user_id", Value: user.ID}, q)
	if err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}
	api.WriteList(w, r, len(bookings), map[string]any{"bookings": bookings})
}
