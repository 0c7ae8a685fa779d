package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handle(t *testing.T, production bool, err error) (int, Envelope) {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	HandleError(w, r, logger, production, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestHandleErrorOperational(t *testing.T) {
	code, env := handle(t, true, NewError(http.StatusBadRequest, "please provide email and password"))

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "fail", env.Status)
	assert.Equal(t, "please provide email and password", env.Message)
	assert.Empty(t, env.Detail)
}

func TestHandleErrorSentinels(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
	}{
		{"not found", fmt.Errorf("no tour found: %w", ErrNotFound), http.StatusNotFound, "fail"},
		{"no rows", pgx.ErrNoRows, http.StatusNotFound, "fail"},
		{"conflict", fmt.Errorf("duplicate: %w", ErrConflict), http.StatusConflict, "fail"},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "fail"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "fail"},
		{"expired token", jwt.ErrTokenExpired, http.StatusUnauthorized, "fail"},
		{"malformed token", jwt.ErrTokenMalformed, http.StatusUnauthorized, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := handle(t, true, tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, env.Status)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestHandleErrorPgCodes(t *testing.T) {
	tests := []struct {
		pgCode   string
		wantCode int
	}{
		{"23505", http.StatusConflict},
		{"22P02", http.StatusBadRequest},
		{"23514", http.StatusBadRequest},
		{"23503", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.pgCode, func(t *testing.T) {
			err := fmt.Errorf("query failed: %w", &pgconn.PgError{Code: tt.pgCode})
			code, env := handle(t, true, err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, "fail", env.Status)
		})
	}
}

func TestHandleErrorUnexpectedProduction(t *testing.T) {
	code, env := handle(t, true, errors.New("pq: connection refused at 10.0.0.5:5432"))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "Something went wrong", env.Message)
	// Internals never leak to clients in production.
	assert.Empty(t, env.Detail)
}

func TestHandleErrorUnexpectedDevelopment(t *testing.T) {
	code, env := handle(t, false, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "error", env.Status)
	assert.Contains(t, env.Detail, "boom")
}

func TestOperationalWinsOverWrappedSentinel(t *testing.T) {
	// An explicit operational error keeps its message even when it wraps a
	// recognized sentinel.
	opErr := &Error{Code: http.StatusUnauthorized, Message: "incorrect email or password", Err: ErrNotFound}
	code, env := handle(t, true, opErr)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "incorrect email or password", env.Message)
}
