package tour

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	database "github.com/FACorreiaa/go-tour-bookings/app/db"
	"github.com/FACorreiaa/go-tour-bookings/app/observability/metrics"
	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/query"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

// Repository extends the factory store contract with the aggregation and
// geospatial queries only tours have.
type Repository interface {
	List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.Tour, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Tour, error)
	Create(ctx context.Context, params types.CreateTourParams) (*types.Tour, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateTourParams) (*types.Tour, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Stats(ctx context.Context) ([]types.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]types.MonthlyPlanEntry, error)
	// ToursWithin returns tours whose start location lies within radiusMeters
	// of the given point.
	ToursWithin(ctx context.Context, lat, lng, radiusMeters float64) ([]types.Tour, error)
	// Distances returns every tour with its distance from the given point in
	// meters, nearest first. Tours without a start location are skipped.
	Distances(ctx context.Context, lat, lng float64) ([]types.TourDistance, error)
}

// startPoint builds the geography expression over the stored start
// coordinates. It matches the functional GIST index in the schema.
const startPoint = "ST_SetSRID(ST_MakePoint(start_lng, start_lat), 4326)::geography"

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

// observe records query duration and error counts for the metrics endpoint.
func observe(ctx context.Context, queryName string, start time.Time, err error) {
	m := metrics.Get()
	attrs := metrics.WithAttrs(attribute.String("query", queryName))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) && !errors.Is(err, api.ErrNotFound) {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

// Slugify turns a tour name into its URL slug.
func Slugify(name string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

func (r *PostgresRepository) List(ctx context.Context, scope *query.Scope, q *query.Descriptor) (_ []types.Tour, err error) {
	ctx, span := otel.Tracer("TourRepository").Start(ctx, "List")
	defer span.End()
	start := time.Now()
	defer func() { observe(ctx, "tours.list", start, err) }()

	sql, args := q.BuildSelect(scope)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing tours: %w", err)
	}

	tours, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.Tour])
	if err != nil {
		return nil, fmt.Errorf("scanning tours: %w", err)
	}
	return tours, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (_ *types.Tour, err error) {
	ctx, span := otel.Tracer("TourRepository").Start(ctx, "Get")
	defer span.End()
	start := time.Now()
	defer func() { observe(ctx, "tours.get", start, err) }()

	rows, err := r.db.Query(ctx, `SELECT * FROM tours WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("database error fetching tour: %w", err)
	}

	tour, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.Tour])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no tour found with that ID: %w", api.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning tour: %w", err)
	}

	// Expand the tour's reviews, mirroring the populated detail view.
	reviewRows, err := r.db.Query(ctx,
		`SELECT id, review, rating, tour_id, user_id, created_at, updated_at
         FROM reviews WHERE tour_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("database error fetching tour reviews: %w", err)
	}
	reviews, err := pgx.CollectRows(reviewRows, pgx.RowToStructByNameLax[types.Review])
	if err != nil {
		return nil, fmt.Errorf("scanning tour reviews: %w", err)
	}
	tour.Reviews = reviews

	return tour, nil
}

func (r *PostgresRepository) Create(ctx context.Context, params types.CreateTourParams) (_ *types.Tour, err error) {
	ctx, span := otel.Tracer("TourRepository").Start(ctx, "Create")
	defer span.End()
	start := time.Now()
	defer func() { observe(ctx, "tours.create", start, err) }()

	sql := `
        INSERT INTO tours (
            name, slug, duration, max_group_size, difficulty, price,
            price_discount, summary, description, image_cover, images,
            start_dates, start_lat, start_lng, start_location_description
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING *`

	rows, err := r.db.Query(ctx, sql,
		params.Name, Slugify(params.Name), params.Duration, params.MaxGroupSize,
		params.Difficulty, params.Price, params.PriceDiscount, params.Summary,
		params.Description, params.ImageCover, params.Images, params.StartDates,
		params.StartLat, params.StartLng, params.StartLocationDescription,
	)

	var tour *types.Tour
	if err == nil {
		tour, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.Tour])
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("a tour with that name already exists: %w", api.ErrConflict)
		}
		return nil, fmt.Errorf("creating tour: %w", err)
	}
	return tour, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, params types.UpdateTourParams) (_ *types.Tour, err error) {
	ctx, span := otel.Tracer("TourRepository").Start(ctx, "Update")
	defer span.End()
	start := time.Now()
	defer func() { observe(ctx, "tours.update", start, err) }()

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Name != nil {
		add("name", *params.Name)
		add("slug", Slugify(*params.Name))
	}
	if params.Duration != nil {
		add("duration", *params.Duration)
	}
	if params.MaxGroupSize != nil {
		add("max_group_size", *params.MaxGroupSize)
	}
	if params.Difficulty != nil {
		add("difficulty", *params.Difficulty)
	}
	if params.Price != nil {
		add("price", *params.Price)
	}
	if params.PriceDiscount != nil {
		add("price_discount", *params.PriceDiscount)
	}
	if params.Summary != nil {
		add("summary", *params.Summary)
	}
	if params.Description != nil {
		add("description", *params.Description)
	}
	if params.ImageCover != nil {
		add("image_cover", *params.ImageCover)
	}
	if params.Images != nil {
		add("images", *params.Images)
	}
	if params.StartDates != nil {
		add("start_dates", *params.StartDates)
	}
	if params.StartLat != nil {
		add("start_lat", *params.StartLat)
	}
	if params.StartLng != nil {
		add("start_lng", *params.StartLng)
	}
	if params.StartLocationDescription != nil {
		add("start_location_description", *params.StartLocationDescription)
	}

	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	sql := fmt.Sprintf(
		"UPDATE tours SET %s, updated_at = now() WHERE id = $%d RETURNING *",
		strings.Join(sets, ", "), len(args))

	rows, err := r.db.Query(ctx, sql, args...)

	var tour *types.Tour
	if err == nil {
		tour, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.Tour])
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no tour found with that ID: %w", api.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("a tour with that name already exists: %w", api.ErrConflict)
		}
		return nil, fmt.Errorf("updating tour: %w", err)
	}
	return tour, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := otel.Tracer("TourRepository").Start(ctx, "Delete")
	defer span.End()
	start := time.Now()
	defer func() { observe(ctx, "tours.delete", start, err) }()

	tag, err := r.db.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database error deleting tour: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no tour found with that ID: %w", api.ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (_ []types.TourStats, err error) {
	ctx, span := otel.Tracer("TourRepository").Start(ctx, "Stats")
	defer span.End()
	start := time.Now()
	defer func() { observe(ctx, "tours.stats", start, err) }()

	sql := `
        SELECT difficulty,
               COUNT(*)                 AS num_tours,
               SUM(ratings_quantity)    AS num_ratings,
               ROUND(AVG(ratings_average)::numeric, 2)::float8 AS avg_rating,
               ROUND(AVG(price)::numeric, 2)::float8           AS avg_price,
               MIN(price)               AS min_price,
               MAX(price)               AS max_price
        FROM tours
        WHERE ratings_average >= 4.5
        GROUP BY difficulty
        ORDER BY avg_price`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("database error computing tour stats: %w", err)
	}

	stats, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.TourStats])
	if err != nil {
		return nil, fmt.Errorf("scanning tour stats: %w", err)
	}
	return stats, nil
}

func (r *PostgresRepository) MonthlyPlan(ctx context.Context, year int) (_ []types.MonthlyPlanEntry, err error) {
	ctx, span := otel.Tracer("TourRepository").Start(ctx, "MonthlyPlan")
	defer span.End()
	start := time.Now()
	defer func() { observe(ctx, "tours.monthly_plan", start, err) }()

	sql := `
        SELECT EXTRACT(MONTH FROM start)::int AS month,
               COUNT(*)::int                  AS num_tour_starts,
               ARRAY_AGG(name ORDER BY name)  AS tours
        FROM tours, unnest(start_dates) AS start
        WHERE EXTRACT(YEAR FROM start) = $1
        GROUP BY month
        ORDER BY num_tour_starts DESC, month
        LIMIT 12`

	rows, err := r.db.Query(ctx, sql, year)
	if err != nil {
		return nil, fmt.Errorf("database error computing monthly plan: %w", err)
	}

	plan, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.MonthlyPlanEntry])
	if err != nil {
		return nil, fmt.Errorf("scanning monthly plan: %w", err)
	}
	return plan, nil
}

func (r *PostgresRepository) ToursWithin(ctx context.Context, lat, lng, radiusMeters float64) (_ []types.Tour, err error) {
	ctx, span := otel.Tracer("TourRepository").Start(ctx, "ToursWithin")
	defer span.End()
	start := time.Now()
	defer func() { observe(ctx, "tours.within", start, err) }()

	sql := `
        SELECT * FROM tours
        WHERE start_lat IS NOT NULL AND start_lng IS NOT NULL
          AND ST_DWithin(` + startPoint + `,
              ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)`

	rows, err := r.db.Query(ctx, sql, lng, lat, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("database error in geospatial search: %w", err)
	}

	tours, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.Tour])
	if err != nil {
		return nil, fmt.Errorf("scanning tours within radius: %w", err)
	}
	return tours, nil
}

func (r *PostgresRepository) Distances(ctx context.Context, lat, lng float64) (_ []types.TourDistance, err error) {
	ctx, span := otel.Tracer("TourRepository").Start(ctx, "Distances")
	defer span.End()
	start := time.Now()
	defer func() { observe(ctx, "tours.distances", start, err) }()

	sql := `
        SELECT id, name,
               ST_Distance(` + startPoint + `,
                   ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance
        FROM tours
        WHERE start_lat IS NOT NULL AND start_lng IS NOT NULL
        ORDER BY distance`

	rows, err := r.db.Query(ctx, sql, lng, lat)
	if err != nil {
		return nil, fmt.Errorf("database error computing distances: %w", err)
	}

	distances, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.TourDistance])
	if err != nil {
		return nil, fmt.Errorf("scanning tour distances: %w", err)
	}
	return distances, nil
}
