package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

type stubService struct {
	Service
	user *types.User
	err  error
}

func (s *stubService) VerifyToken(ctx context.Context, token string) (*types.User, error) {
	return s.user, s.err
}

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	user := &types.User{ID: uuid.New(), Role: types.RoleUser, Active: true}

	t.Run("missing token", func(t *testing.T) {
		mw := NewMiddleware(&stubService{}, "jwt", false, testLogger())

		var hit bool
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		mw.Authenticate(okHandler(&hit)).ServeHTTP(w, r)

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bearer token attaches principal", func(t *testing.T) {
		mw := NewMiddleware(&stubService{user: user}, "jwt", false, testLogger())

		var got *types.User
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetUserFromContext(r.Context())
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer some-token")
		mw.Authenticate(handler).ServeHTTP(w, r)

		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("cookie fallback", func(t *testing.T) {
		mw := NewMiddleware(&stubService{user: user}, "jwt", false, testLogger())

		var hit bool
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "jwt", Value: "cookie-token"})
		mw.Authenticate(okHandler(&hit)).ServeHTTP(w, r)

		assert.True(t, hit)
	})

	t.Run("rejected token", func(t *testing.T) {
		mw := NewMiddleware(&stubService{
			err: api.NewError(http.StatusUnauthorized, "the user belonging to this token no longer exists"),
		}, "jwt", false, testLogger())

		var hit bool
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer stale-token")
		mw.Authenticate(okHandler(&hit)).ServeHTTP(w, r)

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var env api.Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, "the user belonging to this token no longer exists", env.Message)
	})
}

func TestSoftAuthenticate(t *testing.T) {
	t.Run("anonymous request passes through", func(t *testing.T) {
		mw := NewMiddleware(&stubService{}, "jwt", false, testLogger())

		var got *types.User
		var hit bool
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit = true
			got = GetUserFromContext(r.Context())
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		mw.SoftAuthenticate(handler).ServeHTTP(w, r)

		assert.True(t, hit)
		assert.Nil(t, got)
	})

	t.Run("bad token still passes through anonymously", func(t *testing.T) {
		mw := NewMiddleware(&stubService{err: api.ErrUnauthenticated}, "jwt", false, testLogger())

		var hit bool
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer junk")
		mw.SoftAuthenticate(okHandler(&hit)).ServeHTTP(w, r)

		assert.True(t, hit)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	mw := NewMiddleware(&stubService{}, "jwt", false, testLogger())
	guard := mw.RequireRole(types.RoleAdmin, types.RoleLeadGuide)

	withUser := func(r *http.Request, u *types.User) *http.Request {
		return r.WithContext(context.WithValue(r.Context(), userContextKey, u))
	}

	t.Run("allowed role", func(t *testing.T) {
		var hit bool
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/", nil)
		r = withUser(r, &types.User{ID: uuid.New(), Role: types.RoleLeadGuide})
		guard(okHandler(&hit)).ServeHTTP(w, r)

		assert.True(t, hit)
	})

	t.Run("forbidden role", func(t *testing.T) {
		var hit bool
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/", nil)
		r = withUser(r, &types.User{ID: uuid.New(), Role: types.RoleUser})
		guard(okHandler(&hit)).ServeHTTP(w, r)

		assert.False(t, hit)
		assert.Equal(t, http.StatusForbidden, w.Code)

		var env api.Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, "you do not have permission to perform this action", env.Message)
	})

	t.Run("no principal", func(t *testing.T) {
		var hit bool
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/", nil)
		guard(okHandler(&hit)).ServeHTTP(w, r)

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
