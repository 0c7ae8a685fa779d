package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-tour-bookings/app/observability/metrics"
	"github.com/FACorreiaa/go-tour-bookings/config"
	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
	cfg     config.JWTConfig

	production bool
}

func NewHandler(service Service, cfg config.JWTConfig, production bool, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		cfg:        cfg,
		production: production,
	}
}

// setAuthCookie mirrors the token into an HttpOnly cookie so browser clients
// do not have to manage the Authorization header themselves.
func (h *Handler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cfg.AccessTokenTTL),
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, payload *types.TokenPayload) {
	h.setAuthCookie(w, payload.Token)
	api.WriteSuccess(w, r, status, payload)
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Signup"))

	var req types.SignupRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	payload, err := h.service.Signup(r.Context(), req)
	if err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	metrics.Get().SignupsTotal.Add(r.Context(), 1)
	h.respondWithToken(w, r, http.StatusCreated, payload)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Login"))

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	payload, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	metrics.Get().LoginsTotal.Add(r.Context(), 1)
	h.respondWithToken(w, r, http.StatusOK, payload)
}

// Logout overwrites the session cookie with a short-lived dummy value.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteLaxMode,
	})
	api.WriteSuccess(w, r, http.StatusOK, nil)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "ForgotPassword"))

	var req types.ForgotPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	scheme := "http"
	if r.TLS != nil || h.production {
		scheme = "https"
	}
	resetURLBase := fmt.Sprintf("%s://%s/api/v1/users/reset-password", scheme, r.Host)

	if err := h.service.ForgotPassword(r.Context(), req.Email, resetURLBase); err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	api.WriteMessage(w, r, http.StatusOK, "token sent to email")
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "ResetPassword"))

	var req types.ResetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	token := chi.URLParam(r, "token")
	payload, err := h.service.ResetPassword(r.Context(), token, req.Password, req.PasswordConfirm)
	if err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	h.respondWithToken(w, r, http.StatusOK, payload)
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "UpdateMyPassword"))

	user := GetUserFromContext(r.Context())
	if user == nil {
		api.HandleError(w, r, l, h.production,
			api.NewError(http.StatusUnauthorized, "you are not logged in, please log in to get access"))
		return
	}

	var req types.UpdatePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	payload, err := h.service.UpdatePassword(r.Context(), user.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		api.HandleError(w, r, l, h.production, err)
		return
	}

	h.respondWithToken(w, r, http.StatusOK, payload)
}
