package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	database "github.com/FACorreiaa/go-tour-bookings/app/db"
	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

// Repository is the persistence contract the auth service and middleware
// depend on. All lookups only return active (non-soft-deleted) principals.
type Repository interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	// UpdatePassword stores the new hash and bumps password_changed_at so
	// previously issued tokens stop verifying.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetPasswordResetToken(ctx context.Context, email, tokenHash string, expires time.Time) (*types.User, error)
	ClearPasswordResetToken(ctx context.Context, id uuid.UUID) error
	// GetUserByResetToken resolves the principal holding an unexpired reset
	// token hash.
	GetUserByResetToken(ctx context.Context, tokenHash string) (*types.User, error)
}

const userColumns = `id, name, email, photo, role, password_hash,
       password_changed_at, password_reset_token, password_reset_expires,
       active, created_at, updated_at`

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

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Photo, &u.Role, &u.PasswordHash,
		&u.PasswordChangedAt, &u.PasswordResetToken, &u.PasswordResetExpires,
		&u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (*types.User, error) {
	query := `
        INSERT INTO users (name, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, name, email, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("email %q is already registered: %w", email, api.ErrConflict)
		}
		return nil, fmt.Errorf("database error creating user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND active = TRUE`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no user with email %q: %w", email, api.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND active = TRUE`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no user with id %s: %w", id, api.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
        UPDATE users
        SET password_hash = $1,
            password_changed_at = now(),
            password_reset_token = NULL,
            password_reset_expires = NULL,
            updated_at = now()
        WHERE id = $2 AND active = TRUE`

	tag, err := r.db.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("database error updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no user with id %s: %w", id, api.ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) SetPasswordResetToken(ctx context.Context, email, tokenHash string, expires time.Time) (*types.User, error) {
	query := `
        UPDATE users
        SET password_reset_token = $1,
            password_reset_expires = $2,
            updated_at = now()
        WHERE email = $3 AND active = TRUE
        RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, tokenHash, expires, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no user with email %q: %w", email, api.ErrNotFound)
		}
		return nil, fmt.Errorf("database error storing reset token: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) ClearPasswordResetToken(ctx context.Context, id uuid.UUID) error {
	query := `
        UPDATE users
        SET password_reset_token = NULL,
            password_reset_expires = NULL,
            updated_at = now()
        WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("database error clearing reset token: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUserByResetToken(ctx context.Context, tokenHash string) (*types.User, error) {
	query := `SELECT ` + userColumns + `
        FROM users
        WHERE password_reset_token = $1
          AND password_reset_expires > now()
          AND active = TRUE`

	user, err := scanUser(r.db.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reset token unknown or expired: %w", api.ErrNotFound)
		}
		return nil, fmt.Errorf("database error resolving reset token: %w", err)
	}
	return user, nil
}
