// Package crud builds the standard REST handlers (list, get, create, update,
// delete) for any resource backed by a Store. Controllers declare a Resource
// and mount the generated http.HandlerFuncs; resource-specific behavior hangs
// off the DecorateCreate and AfterWrite hooks instead of bespoke handlers.
package crud

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/query"
)

// Store is the persistence contract a resource needs for factory handlers.
// T is the entity, C the create params, U the update params.
type Store[T any, C any, U any] interface {
	List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]T, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Create(ctx context.Context, params C) (*T, error)
	Update(ctx context.Context, id uuid.UUID, params U) (*T, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Resource describes one REST collection. ScopeParam/ScopeColumn bind nested
// routes (reviews mounted under a tour) to a parent column; DecorateCreate
// runs before Create to fill params from the route or the principal;
// AfterWrite runs after every successful create, update and delete, with the
// written (or just-deleted) entity.
type Resource[T any, C any, U any] struct {
	Entity     string
	Store      Store[T, C, U]
	Spec       query.Spec
	Logger     *slog.Logger
	Production bool

	ScopeParam  string
	ScopeColumn string

	DecorateCreate func(r *http.Request, params *C) error
	AfterWrite     func(ctx context.Context, entity *T)
}

func (res *Resource[T, C, U]) fail(w http.ResponseWriter, r *http.Request, err error) {
	api.HandleError(w, r, res.Logger, res.Production, err)
}

// scope resolves the parent filter for nested routes. A flat mount (no scope
// param in the route) yields a nil scope and the full collection.
func (res *Resource[T, C, U]) scope(r *http.Request) (*query.Scope, error) {
	if res.ScopeParam == "" {
		return nil, nil
	}
	raw := chi.URLParam(r, res.ScopeParam)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, api.NewError(http.StatusBadRequest, "invalid id in URL")
	}
	return &query.Scope{Column: res.ScopeColumn, Value: id}, nil
}

func entityID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, api.NewError(http.StatusBadRequest, "invalid id in URL")
	}
	return id, nil
}

// ListAll serves the filtered, sorted, projected and paginated collection.
func (res *Resource[T, C, U]) ListAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := res.scope(r)
		if err != nil {
			res.fail(w, r, err)
			return
		}

		q := query.Parse(r.URL.Query(), res.Spec)
		items, err := res.Store.List(r.Context(), scope, q)
		if err != nil {
			res.fail(w, r, err)
			return
		}

		api.WriteList(w, r, len(items), map[string]any{res.Entity + "s": items})
	}
}

func (res *Resource[T, C, U]) GetOne() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := entityID(r)
		if err != nil {
			res.fail(w, r, err)
			return
		}

		item, err := res.Store.Get(r.Context(), id)
		if err != nil {
			res.fail(w, r, err)
			return
		}

		api.WriteSuccess(w, r, http.StatusOK, map[string]any{res.Entity: item})
	}
}

func (res *Resource[T, C, U]) CreateOne() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params C
		if err := api.DecodeJSONBody(w, r, &params); err != nil {
			res.fail(w, r, err)
			return
		}
		if res.DecorateCreate != nil {
			if err := res.DecorateCreate(r, &params); err != nil {
				res.fail(w, r, err)
				return
			}
		}

		item, err := res.Store.Create(r.Context(), params)
		if err != nil {
			res.fail(w, r, err)
			return
		}
		if res.AfterWrite != nil {
			res.AfterWrite(r.Context(), item)
		}

		api.WriteSuccess(w, r, http.StatusCreated, map[string]any{res.Entity: item})
	}
}

func (res *Resource[T, C, U]) UpdateOne() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := entityID(r)
		if err != nil {
			res.fail(w, r, err)
			return
		}

		var params U
		if err := api.DecodeJSONBody(w, r, &params); err != nil {
			res.fail(w, r, err)
			return
		}

		item, err := res.Store.Update(r.Context(), id, params)
		if err != nil {
			res.fail(w, r, err)
			return
		}
		if res.AfterWrite != nil {
			res.AfterWrite(r.Context(), item)
		}

		api.WriteSuccess(w, r, http.StatusOK, map[string]any{res.Entity: item})
	}
}

func (res *Resource[T, C, U]) DeleteOne() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := entityID(r)
		if err != nil {
			res.fail(w, r, err)
			return
		}

		// AfterWrite needs the entity after it is gone, so capture it first.
		var deleted *T
		if res.AfterWrite != nil {
			deleted, err = res.Store.Get(r.Context(), id)
			if err != nil {
				res.fail(w, r, err)
				return
			}
		}

		if err := res.Store.Delete(r.Context(), id); err != nil {
			res.fail(w, r, err)
			return
		}
		if res.AfterWrite != nil {
			res.AfterWrite(r.Context(), deleted)
		}

		api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
	}
}
