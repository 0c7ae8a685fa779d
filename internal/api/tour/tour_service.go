package tour

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-tour-bookings/internal/api/query"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

const statsCacheKey = "tour-stats"

var _ Service = (*ServiceImpl)(nil)

// Service fronts the repository with the tour business rules: aggregate
// caching and cache invalidation on writes. It satisfies the factory store
// contract so the standard handlers run through it.
type Service interface {
	List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.Tour, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Tour, error)
	Create(ctx context.Context, params types.CreateTourParams) (*types.Tour, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateTourParams) (*types.Tour, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Stats(ctx context.Context) ([]types.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]types.MonthlyPlanEntry, error)
	ToursWithin(ctx context.Context, lat, lng, radiusMeters float64) ([]types.Tour, error)
	Distances(ctx context.Context, lat, lng float64) ([]types.TourDistance, error)

	// InvalidateStats drops the cached aggregate; callers that change
	// ratings out of band (the review service) use it after recomputes.
	InvalidateStats()
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	cache  *gocache.Cache
}

func NewService(repo Repository, cache *gocache.Cache, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache,
	}
}

func (s *ServiceImpl) List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.Tour, error) {
	return s.repo.List(ctx, scope, q)
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.Tour, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateTourParams) (*types.Tour, error) {
	tour, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	s.InvalidateStats()
	return tour, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateTourParams) (*types.Tour, error) {
	tour, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return nil, err
	}
	s.InvalidateStats()
	return tour, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateStats()
	return nil
}

// Stats serves the difficulty aggregate from cache when present. The cache
// entry expires on its own TTL as a backstop for missed invalidations.
func (s *ServiceImpl) Stats(ctx context.Context) ([]types.TourStats, error) {
	if cached, ok := s.cache.Get(statsCacheKey); ok {
		if stats, ok := cached.([]types.TourStats); ok {
			return stats, nil
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(statsCacheKey, stats, gocache.DefaultExpiration)
	return stats, nil
}

func (s *ServiceImpl) MonthlyPlan(ctx context.Context, year int) ([]types.MonthlyPlanEntry, error) {
	return s.repo.MonthlyPlan(ctx, year)
}

func (s *ServiceImpl) ToursWithin(ctx context.Context, lat, lng, radiusMeters float64) ([]types.Tour, error) {
	return s.repo.ToursWithin(ctx, lat, lng, radiusMeters)
}

func (s *ServiceImpl) Distances(ctx context.Context, lat, lng float64) ([]types.TourDistance, error) {
	return s.repo.Distances(ctx, lat, lng)
}

func (s *ServiceImpl) InvalidateStats() {
	s.cache.Delete(statsCacheKey)
}
