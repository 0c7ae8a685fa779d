package crud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/query"
)

type widget struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type createWidget struct {
	Name    string    `json:"name"`
	OwnerID uuid.UUID `json:"owner,omitempty"`
}

type updateWidget struct {
	Name *string `json:"name,omitempty"`
}

type fakeStore struct {
	items     map[uuid.UUID]widget
	lastScope *query.Scope
	lastQuery *query.Descriptor
	deleted   []uuid.UUID
}

func newFakeStore(items ...widget) *fakeStore {
	s := &fakeStore{items: make(map[uuid.UUID]widget)}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *fakeStore) List(ctx context.Context, scope *query.Scope, q *query.Descriptor) ([]widget, error) {
	s.lastScope, s.lastQuery = scope, q
	out := make([]widget, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	return out, nil
}

func (s *fakeStore) Get(ctx context.Context, id uuid.UUID) (*widget, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("no widget found: %w", api.ErrNotFound)
	}
	return &it, nil
}

func (s *fakeStore) Create(ctx context.Context, params createWidget) (*widget, error) {
	it := widget{ID: uuid.New(), Name: params.Name}
	s.items[it.ID] = it
	return &it, nil
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, params updateWidget) (*widget, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("no widget found: %w", api.ErrNotFound)
	}
	if params.Name != nil {
		it.Name = *params.Name
	}
	s.items[id] = it
	return &it, nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("no widget found: %w", api.ErrNotFound)
	}
	delete(s.items, id)
	s.deleted = append(s.deleted, id)
	return nil
}

var widgetSpec = query.Spec{
	Table:       "widgets",
	Columns:     map[string]string{"name": "name", "createdAt": "created_at"},
	Selectable:  []string{"id", "name"},
	DefaultSort: "-createdAt",
}

func newResource(store *fakeStore) *Resource[widget, createWidget, updateWidget] {
	return &Resource[widget, createWidget, updateWidget]{
		Entity: "widget",
		Store:  store,
		Spec:   widgetSpec,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) api.Envelope {
	t.Helper()
	var env api.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestListAll(t *testing.T) {
	store := newFakeStore(
		widget{ID: uuid.New(), Name: "a"},
		widget{ID: uuid.New(), Name: "b"},
	)
	res := newResource(store)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/widgets?name=a&limit=10", nil)
	res.ListAll()(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, "success", env.Status)
	require.NotNil(t, env.Results)
	assert.Equal(t, 2, *env.Results)

	// The raw query string reached the parser.
	require.NotNil(t, store.lastQuery)
	assert.Equal(t, 10, store.lastQuery.Limit)
	require.Len(t, store.lastQuery.Filters, 1)
	assert.Equal(t, "name", store.lastQuery.Filters[0].Column)
}

func TestGetOne(t *testing.T) {
	item := widget{ID: uuid.New(), Name: "a"}
	res := newResource(newFakeStore(item))

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := chiRequest(http.MethodGet, "/widgets/"+item.ID.String(), nil, map[string]string{"id": item.ID.String()})
		res.GetOne()(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		id := uuid.NewString()
		w := httptest.NewRecorder()
		r := chiRequest(http.MethodGet, "/widgets/"+id, nil, map[string]string{"id": id})
		res.GetOne()(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := chiRequest(http.MethodGet, "/widgets/nope", nil, map[string]string{"id": "nope"})
		res.GetOne()(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateOneHooks(t *testing.T) {
	store := newFakeStore()
	res := newResource(store)

	var decorated, afterCalled bool
	res.DecorateCreate = func(r *http.Request, params *createWidget) error {
		decorated = true
		params.OwnerID = uuid.New()
		return nil
	}
	res.AfterWrite = func(ctx context.Context, entity *widget) {
		afterCalled = true
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/widgets", strings.NewReader(`{"name":"new"}`))
	res.CreateOne()(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decorated)
	assert.True(t, afterCalled)
}

func TestCreateOneDecorateRejects(t *testing.T) {
	res := newResource(newFakeStore())
	res.DecorateCreate = func(r *http.Request, params *createWidget) error {
		return api.NewError(http.StatusBadRequest, "widget must belong to a shelf")
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/widgets", strings.NewReader(`{"name":"new"}`))
	res.CreateOne()(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "widget must belong to a shelf", env.Message)
}

func TestCreateOneBadBody(t *testing.T) {
	res := newResource(newFakeStore())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/widgets", strings.NewReader(`{"name":`))
	res.CreateOne()(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOne(t *testing.T) {
	item := widget{ID: uuid.New(), Name: "old"}
	store := newFakeStore(item)
	res := newResource(store)

	w := httptest.NewRecorder()
	r := chiRequest(http.MethodPatch, "/widgets/"+item.ID.String(),
		strings.NewReader(`{"name":"new"}`), map[string]string{"id": item.ID.String()})
	res.UpdateOne()(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new", store.items[item.ID].Name)
}

func TestDeleteOne(t *testing.T) {
	item := widget{ID: uuid.New(), Name: "a"}
	store := newFakeStore(item)
	res := newResource(store)

	// AfterWrite gets the entity captured before deletion.
	var seen *widget
	res.AfterWrite = func(ctx context.Context, entity *widget) { seen = entity }

	w := httptest.NewRecorder()
	r := chiRequest(http.MethodDelete, "/widgets/"+item.ID.String(), nil, map[string]string{"id": item.ID.String()})
	res.DeleteOne()(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
	require.NotNil(t, seen)
	assert.Equal(t, item.ID, seen.ID)
	assert.Equal(t, []uuid.UUID{item.ID}, store.deleted)
}

func TestListAllNestedScope(t *testing.T) {
	store := newFakeStore()
	res := newResource(store)
	res.ScopeParam = "shelfID"
	res.ScopeColumn = "shelf_id"

	shelfID := uuid.New()
	w := httptest.NewRecorder()
	r := chiRequest(http.MethodGet, "/shelves/"+shelfID.String()+"/widgets", nil,
		map[string]string{"shelfID": shelfID.String()})
	res.ListAll()(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, store.lastScope)
	assert.Equal(t, "shelf_id", store.lastScope.Column)
	assert.Equal(t, shelfID, store.lastScope.Value)
}

// chiRequest builds a request carrying chi route parameters.
func chiRequest(method, target string, body io.Reader, params map[string]string) *http.Request {
	r := httptest.NewRequest(method, target, body)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
