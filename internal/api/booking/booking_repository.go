package booking

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
	List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Booking, error)
	Create(ctx context.Context, params types.CreateBookingParams) (*types.Booking, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateBookingParams) (*types.Booking, error)
	Delete(ctx context.Context, id uuid.UUID) error
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

func (r *PostgresRepository) List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.Booking, error) {
	ctx, span := otel.Tracer("BookingRepository").Start(ctx, "List")
	defer span.End()

	sql, args := q.BuildSelect(scope)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing bookings: %w", err)
	}

	bookings, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.Booking])
	if err != nil {
		return nil, fmt.Errorf("scanning bookings: %w", err)
	}
	return bookings, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*types.Booking, error) {
	ctx, span := otel.Tracer("BookingRepository").Start(ctx, "Get")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT id, tour_id, user_id, price, paid, created_at FROM bookings WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("database error fetching booking: %w", err)
	}

	booking, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.Booking])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no booking found with that ID: %w", api.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning booking: %w", err)
	}
	return booking, nil
}

func (r *PostgresRepository) Create(ctx context.Context, params types.CreateBookingParams) (*types.Booking, error) {
	ctx, span := otel.Tracer("BookingRepository").Start(ctx, "Create")
	defer span.End()

	paid := false
	if params.Paid != nil {
		paid = *params.Paid
	}

	rows, err := r.db.Query(ctx, `
        INSERT INTO bookings (tour_id, user_id, price, paid)
        VALUES ($1, $2, $3, $4)
        RETURNING id, tour_id, user_id, price, paid, created_at`,
		params.TourID, params.UserID, params.Price, paid)

	var booking *types.Booking
	if err == nil {
		booking, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.Booking])
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, fmt.Errorf("tour or user does not exist: %w", api.ErrNotFound)
		}
		return nil, fmt.Errorf("creating booking: %w", err)
	}
	return booking, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, params types.UpdateBookingParams) (*types.Booking, error) {
	ctx, span := otel.Tracer("BookingRepository").Start(ctx, "Update")
	defer span.End()

	var sets []string
	var args []any
	if params.Price != nil {
		args = append(args, *params.Price)
		sets = append(sets, fmt.Sprintf("price = $%d", len(args)))
	}
	if params.Paid != nil {
		args = append(args, *params.Paid)
		sets = append(sets, fmt.Sprintf("paid = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	sql := fmt.Sprintf(`
        UPDATE bookings SET %s
        WHERE id = $%d
        RETURNING id, tour_id, user_id, price, paid, created_at`,
		strings.Join(sets, ", "), len(args))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("database error updating booking: %w", err)
	}

	booking, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.Booking])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no booking found with that ID: %w", api.ErrNotFound)
		}
		return nil, fmt.Errorf("updating booking: %w", err)
	}
	return booking, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("BookingRepository").Start(ctx, "Delete")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database error deleting booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no booking found with that ID: %w", api.ErrNotFound)
	}
	return nil
}
