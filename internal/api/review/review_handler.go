package review

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/auth"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/crud"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/query"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

// Spec declares the queryable review fields.
var Spec = query.Spec{
	Table: "reviews",
	Columns: map[string]string{
		"rating":    "rating",
		"tour":      "tour_id",
		"user":      "user_id",
		"createdAt": "created_at",
	},
	Selectable: []string{
		"id", "review", "rating", "tour_id", "user_id", "created_at", "updated_at",
	},
	DefaultSort: "-createdAt",
}

type Handler struct {
	logger  *slog.Logger
	service Service

	production bool
	resource   *crud.Resource[types.Review, types.CreateReviewParams, types.UpdateReviewParams]
}

func NewHandler(service Service, production bool, logger *slog.Logger) *Handler {
	h := &Handler{
		logger:     logger,
		service:    service,
		production: production,
	}
	h.resource = &crud.Resource[types.Review, types.CreateReviewParams, types.UpdateReviewParams]{
		Entity:      "review",
		Store:       service,
		Spec:        Spec,
		Logger:      logger,
		Production:  production,
		ScopeParam:  "tourID",
		ScopeColumn: "tour_id",

		DecorateCreate: h.decorateCreate,
		AfterWrite:     h.afterWrite,
	}
	return h
}

// decorateCreate fills the tour from the nested route and pins the author to
// the authenticated principal. Only admins may file a review as another user.
func (h *Handler) decorateCreate(r *http.Request, params *types.CreateReviewParams) error {
	if params.TourID == uuid.Nil {
		raw := chi.URLParam(r, "tourID")
		if raw == "" {
			return api.NewError(http.StatusBadRequest, "review must belong to a tour")
		}
		tourID, err := uuid.Parse(raw)
		if err != nil {
			return api.NewError(http.StatusBadRequest, "invalid id in URL")
		}
		params.TourID = tourID
	}

	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		return api.NewError(http.StatusUnauthorized, "you are not logged in, please log in to get access")
	}
	if params.UserID == uuid.Nil || user.Role != types.RoleAdmin {
		params.UserID = user.ID
	}

	if params.Rating < 1 || params.Rating > 5 {
		return api.NewError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	return nil
}

// afterWrite keeps the denormalized tour aggregates in step with the review
// set. The write already committed, so a failed recompute is logged and the
// aggregates catch up on the next review write.
func (h *Handler) afterWrite(ctx context.Context, review *types.Review) {
	if review == nil {
		return
	}
	if _, err := h.service.RecalculateTourRatings(ctx, review.TourID); err != nil {
		h.logger.ErrorContext(ctx, "failed to recalculate tour ratings",
			slog.String("tour_id", review.TourID.String()),
			slog.Any("error", err))
	}
}

func (h *Handler) ListReviews() http.HandlerFunc { return h.resource.ListAll() }
func (h *Handler) GetReview() http.HandlerFunc { return h.resource.GetOne() }
func (h *Handler) CreateReview() http.HandlerFunc { return h.resource.CreateOne() }
func (h *Handler) UpdateReview() http.HandlerFunc { return h.resource.UpdateOne() }
func (h *Handler) DeleteReview() http.HandlerFunc { return h.resource.DeleteOne() }
