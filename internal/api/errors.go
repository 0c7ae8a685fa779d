package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors marking the failure class of a wrapped error. Repositories
// and services wrap these with fmt.Errorf("...: %w", api.ErrNotFound) so the
// normalizer can pick the right HTTP status without string matching.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("resource conflict")
	ErrInternal        = errors.New("internal error")
)

// Error is an operational failure raised with an explicit status code and a
// client-safe message decided at the raise site.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an operational error shown verbatim to the client.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Postgres error codes recognized by the normalizer.
const (
	pgUniqueViolation  = "23505"
	pgInvalidTextRep   = "22P02"
	pgCheckViolation   = "23514"
	pgForeignKeyBroken = "23503"
)

// HandleError is the single normalization point for failures raised anywhere
// below a handler. Recognized shapes (pg constraint violations, bad casts,
// token errors, sentinel-wrapped repo errors) become operational responses;
// everything else is logged and reduced to an opaque 500 in production.
func HandleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, production bool, err error) {
	code, message, operational := normalize(err)

	if !operational {
		logger.ErrorContext(r.Context(), "Unexpected error",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
		)
		if production {
			WriteJSONResponse(w, r, code, Envelope{Status: "error", Message: "Something went wrong"})
			return
		}
		WriteJSONResponse(w, r, code, Envelope{Status: "error", Message: message, Detail: err.Error()})
		return
	}

	env := Envelope{Status: statusWord(code), Message: message}
	if !production {
		env.Detail = err.Error()
	}
	WriteJSONResponse(w, r, code, env)
}

// normalize maps an error to (status, client message, operational).
func normalize(err error) (int, string, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return http.StatusConflict, "Duplicate field value, please use another value", true
		case pgInvalidTextRep:
			return http.StatusBadRequest, "Invalid identifier", true
		case pgCheckViolation:
			return http.StatusBadRequest, "Invalid input data", true
		case pgForeignKeyBroken:
			return http.StatusBadRequest, "Referenced resource does not exist", true
		}
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "Resource not found", true
	case errors.Is(err, jwt.ErrTokenExpired):
		return http.StatusUnauthorized, "Your token has expired, please login again", true
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrSignatureInvalid),
		errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return http.StatusUnauthorized, "Invalid token, please login again", true
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "Authentication required", true
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "You don't have the permission to perform this action", true
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "Duplicate field value, please use another value", true
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "Invalid input data", true
	}

	return http.StatusInternalServerError, "Something went wrong", false
}
