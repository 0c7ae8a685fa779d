package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"

	database "github.com/FACorreiaa/go-tour-bookings/app/db"
	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/query"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

type Repository interface {
	List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.Review, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Review, error)
	Create(ctx context.Context, params types.CreateReviewParams) (*types.Review, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateReviewParams) (*types.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// RecalculateTourRatings rewrites the tour's denormalized rating
	// aggregates from its current review set in a single statement. A tour
	// with no reviews reverts to the seed values (4.5, 0).
	RecalculateTourRatings(ctx context.Context, tourID uuid.UUID) (*types.RatingStats, error)
}

type PostgresRepository struct {
	logger *slog.Logger
	db     database.Querier
}

func NewPostgresRepository(db database.Querier, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresRepository) List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.Review, error) {
	ctx, span := otel.Tracer("ReviewRepository").Start(ctx, "List")
	defer span.End()

	sql, args := q.BuildSelect(scope)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing reviews: %w", err)
	}

	reviews, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.Review])
	if err != nil {
		return nil, fmt.Errorf("scanning reviews: %w", err)
	}
	return reviews, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*types.Review, error) {
	ctx, span := otel.Tracer("ReviewRepository").Start(ctx, "Get")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT id, review, rating, tour_id, user_id, created_at, updated_at
         FROM reviews WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("database error fetching review: %w", err)
	}

	review, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.Review])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no review found with that ID: %w", api.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning review: %w", err)
	}
	return review, nil
}

func (r *PostgresRepository) Create(ctx context.Context, params types.CreateReviewParams) (*types.Review, error) {
	ctx, span := otel.Tracer("ReviewRepository").Start(ctx, "Create")
	defer span.End()

	rows, err := r.db.Query(ctx, `
        INSERT INTO reviews (review, rating, tour_id, user_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, review, rating, tour_id, user_id, created_at, updated_at`,
		params.Review, params.Rating, params.TourID, params.UserID)

	var review *types.Review
	if err == nil {
		review, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.Review])
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, fmt.Errorf("you have already reviewed this tour: %w", api.ErrConflict)
			case "23503":
				return nil, fmt.Errorf("no tour found with that ID: %w", api.ErrNotFound)
			}
		}
		return nil, fmt.Errorf("creating review: %w", err)
	}
	return review, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, params types.UpdateReviewParams) (*types.Review, error) {
	ctx, span := otel.Tracer("ReviewRepository").Start(ctx, "Update")
	defer span.End()

	var sets []string
	var args []any
	if params.Review != nil {
		args = append(args, *params.Review)
		sets = append(sets, fmt.Sprintf("review = $%d", len(args)))
	}
	if params.Rating != nil {
		args = append(args, *params.Rating)
		sets = append(sets, fmt.Sprintf("rating = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	sql := fmt.Sprintf(`
        UPDATE reviews SET %s, updated_at = now()
        WHERE id = $%d
        RETURNING id, review, rating, tour_id, user_id, created_at, updated_at`,
		strings.Join(sets, ", "), len(args))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("database error updating review: %w", err)
	}

	review, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.Review])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no review found with that ID: %w", api.ErrNotFound)
		}
		return nil, fmt.Errorf("updating review: %w", err)
	}
	return review, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("ReviewRepository").Start(ctx, "Delete")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database error deleting review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no review found with that ID: %w", api.ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) RecalculateTourRatings(ctx context.Context, tourID uuid.UUID) (*types.RatingStats, error) {
	ctx, span := otel.Tracer("ReviewRepository").Start(ctx, "RecalculateTourRatings")
	defer span.End()

	// One statement reads the aggregate and writes the tour row, so the
	// recompute never interleaves with a concurrent review write.
	sql := `
        UPDATE tours
        SET ratings_quantity = agg.quantity,
            ratings_average  = agg.average,
            updated_at       = now()
        FROM (
            SELECT COUNT(*)::int AS quantity,
                   COALESCE(ROUND(AVG(rating)::numeric, 2), 4.5)::float8 AS average
            FROM reviews
            WHERE tour_id = $1
        ) AS agg
        WHERE tours.id = $1
        RETURNING agg.quantity, agg.average`

	var stats types.RatingStats
	if err := r.db.QueryRow(ctx, sql, tourID).Scan(&stats.Quantity, &stats.Average); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Tour deleted concurrently; nothing to update.
			return &types.RatingStats{Quantity: 0, Average: 4.5}, nil
		}
		return nil, fmt.Errorf("database error recalculating tour ratings: %w", err)
	}
	return &stats, nil
}
