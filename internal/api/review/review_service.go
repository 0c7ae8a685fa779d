package review

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-tour-bookings/internal/api/query"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service keeps the tour rating aggregates consistent with the review set.
// Every write path ends with an explicit recompute call; there is no hidden
// database trigger.
type Service interface {
	List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.Review, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Review, error)
	Create(ctx context.Context, params types.CreateReviewParams) (*types.Review, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateReviewParams) (*types.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error

	RecalculateTourRatings(ctx context.Context, tourID uuid.UUID) (*types.RatingStats, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository

	// onRatingsChanged runs after a successful recompute; wiring points it
	// at the tour stats cache invalidation.
	onRatingsChanged func()
}

func NewService(repo Repository, onRatingsChanged func(), logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:           logger,
		repo:             repo,
		onRatingsChanged: onRatingsChanged,
	}
}

func (s *ServiceImpl) List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.Review, error) {
	return s.repo.List(ctx, scope, q)
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.Review, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateReviewParams) (*types.Review, error) {
	return s.repo.Create(ctx, params)
}

func (s *ServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateReviewParams) (*types.Review, error) {
	return s.repo.Update(ctx, id, params)
}

func (s *ServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *ServiceImpl) RecalculateTourRatings(ctx context.Context, tourID uuid.UUID) (*types.RatingStats, error) {
	stats, err := s.repo.RecalculateTourRatings(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if s.onRatingsChanged != nil {
		s.onRatingsChanged()
	}
	s.logger.DebugContext(ctx, "tour ratings recalculated",
		slog.String("tour_id", tourID.String()),
		slog.Int("quantity", stats.Quantity),
		slog.Float64("average", stats.Average))
	return stats, nil
}
