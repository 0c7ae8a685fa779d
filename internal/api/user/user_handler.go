package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/auth"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/crud"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/query"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

// Spec declares the queryable user fields. Credential columns are not
// selectable.
var Spec = query.Spec{
	Table: "users",
	Columns: map[string]string{
		"name":      "name",
		"email":     "email",
		"role":      "role",
		"createdAt": "created_at",
	},
	Selectable: []string{
		"id", "name", "email", "photo", "role", "created_at", "updated_at",
	},
	DefaultSort: "-createdAt",
}

// adminStore adapts the repository to the factory store contract. Direct
// creation is not part of the collection API; accounts only come from signup.
type adminStore struct {
	Repository
}

func (adminStore) Create(ctx context.Context, params types.CreateUserParams) (*types.User, error) {
	return nil, api.NewError(http.StatusInternalServerError,
		"this route is not defined, please use /signup instead")
}

type Handler struct {
	logger *slog.Logger
	repo   Repository

	production bool
	resource   *crud.Resource[types.User, types.CreateUserParams, types.UpdateUserParams]
}

func NewHandler(repo Repository, production bool, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		repo:       repo,
		production: production,
		resource: &crud.Resource[types.User, types.CreateUserParams, types.UpdateUserParams]{
			Entity:     "user",
			Store:      adminStore{repo},
			Spec:       Spec,
			Logger:     logger,
			Production: production,
		},
	}
}

func (h *Handler) ListUsers() http.HandlerFunc { return h.resource.ListAll() }
func (h *Handler) GetUser() http.HandlerFunc { return h.resource.GetOne() }
func (h *Handler) CreateUser() http.HandlerFunc { return h.resource.CreateOne() }
func (h *Handler) UpdateUser() http.HandlerFunc { return h.resource.UpdateOne() }
func (h *Handler) DeleteUser() http.HandlerFunc { return h.resource.DeleteOne() }

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (*types.User, bool) {
	user := auth.GetUserFromContext(r.Context())
	if user == nil {
		api.HandleError(w, r, h.logger, h.production,
			api.NewError(http.StatusUnauthorized, "you are not logged in, please log in to get access"))
		return nil, false
	}
	return user, true
}

// GetMe returns the authenticated principal's own profile.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principal(w, r)
	if !ok {
		return
	}
	api.WriteSuccess(w, r, http.StatusOK, map[string]any{"user": user})
}

// updateMeRequest carries the credential keys only so their presence can be
// rejected with a pointer to the password routes.
type updateMeRequest struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Photo           *string `json:"photo,omitempty"`
	Password        *string `json:"password,omitempty"`
	PasswordConfirm *string `json:"passwordConfirm,omitempty"`
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req updateMeRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}
	if req.Password != nil || req.PasswordConfirm != nil {
		api.HandleError(w, r, h.logger, h.production,
			api.NewError(http.StatusBadRequest,
				"this route is not for password updates, please use /update-my-password"))
		return
	}

	updated, err := h.repo.UpdateProfile(r.Context(), user.ID, types.UpdateMeParams{
		Name:  req.Name,
		Email: req.Email,
		Photo: req.Photo,
	})
	if err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}
	api.WriteSuccess(w, r, http.StatusOK, map[string]any{"user": updated})
}

// DeleteMe deactivates the account rather than dropping the row, so the
// user's bookings and reviews stay intact.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.repo.Deactivate(r.Context(), user.ID); err != nil {
		api.HandleError(w, r, h.logger, h.production, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
