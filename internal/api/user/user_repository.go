package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
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
	List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.User, error)
	Get(ctx context.Context, id uuid.UUID) (*types.User, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateProfile is the self-service partial update; it can never touch
	// role, active or any credential column.
	UpdateProfile(ctx context.Context, id uuid.UUID, params types.UpdateMeParams) (*types.User, error)
	// Deactivate soft-deletes the account. The row stays for bookings and
	// reviews; every principal lookup filters on active.
	Deactivate(ctx context.Context, id uuid.UUID) error
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

func (r *PostgresRepository) List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]types.User, error) {
	ctx, span := otel.Tracer("UserRepository").Start(ctx, "List")
	defer span.End()

	sql, args := q.BuildSelect(scope)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing users: %w", err)
	}

	users, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.User])
	if err != nil {
		return nil, fmt.Errorf("scanning users: %w", err)
	}
	return users, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepository").Start(ctx, "Get")
	defer span.End()

	rows, err := r.db.Query(ctx, `
        SELECT id, name, email, photo, role, active, created_at, updated_at
        FROM users WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}

	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no user found with that ID: %w", api.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepository").Start(ctx, "Update")
	defer span.End()

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.Email != nil {
		add("email", *params.Email)
	}
	if params.Photo != nil {
		add("photo", *params.Photo)
	}
	if params.Role != nil {
		if !params.Role.Valid() {
			return nil, api.NewError(http.StatusBadRequest, "invalid role")
		}
		add("role", *params.Role)
	}
	if params.Active != nil {
		add("active", *params.Active)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	sql := fmt.Sprintf(`
        UPDATE users SET %s, updated_at = now()
        WHERE id = $%d
        RETURNING id, name, email, photo, role, active, created_at, updated_at`,
		strings.Join(sets, ", "), len(args))

	return r.scanUpdated(ctx, sql, args)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id uuid.UUID, params types.UpdateMeParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepository").Start(ctx, "UpdateProfile")
	defer span.End()

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.Email != nil {
		add("email", *params.Email)
	}
	if params.Photo != nil {
		add("photo", *params.Photo)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	sql := fmt.Sprintf(`
        UPDATE users SET %s, updated_at = now()
        WHERE id = $%d AND active = TRUE
        RETURNING id, name, email, photo, role, active, created_at, updated_at`,
		strings.Join(sets, ", "), len(args))

	return r.scanUpdated(ctx, sql, args)
}

func (r *PostgresRepository) scanUpdated(ctx context.Context, sql string, args []any) (*types.User, error) {
	rows, err := r.db.Query(ctx, sql, args...)

	var user *types.User
	if err == nil {
		user, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[types.User])
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no user found with that ID: %w", api.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("that email is already in use: %w", api.ErrConflict)
		}
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepository").Start(ctx, "Delete")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no user found with that ID: %w", api.ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepository").Start(ctx, "Deactivate")
	defer span.End()

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET active = FALSE, updated_at = now() WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		return fmt.Errorf("database error deactivating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no user found with that ID: %w", api.ErrNotFound)
	}
	return nil
}
