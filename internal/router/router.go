// Package router assembles the versioned API surface. Role sets for each
// guarded route group are declared here as plain values, so the full
// authorization matrix is readable in one place.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/auth"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/booking"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/review"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/tour"
	"github.com/FACorreiaa/go-tour-bookings/internal/api/user"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

// Role sets guarding write access, per route group.
var (
	tourManagers    = []types.Role{types.RoleAdmin, types.RoleLeadGuide}
	planViewers     = []types.Role{types.RoleAdmin, types.RoleLeadGuide, types.RoleGuide}
	reviewAuthors   = []types.Role{types.RoleUser}
	reviewModifiers = []types.Role{types.RoleUser, types.RoleAdmin}
	bookingManagers = []types.Role{types.RoleAdmin, types.RoleLeadGuide}
	adminOnly       = []types.Role{types.RoleAdmin}
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth     *auth.Handler
	AuthMW   *auth.Middleware
	Users    *user.Handler
	Tours    *tour.Handler
	Reviews  *review.Handler
	Bookings *booking.Handler
}

// Mount attaches the versioned API below /api/v1 on r.
func Mount(r chi.Router, h *Handlers) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.WriteMessage(w, r, http.StatusOK, "ok")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", userRoutes(h))
		r.Route("/tours", tourRoutes(h))
		r.Route("/reviews", reviewRoutes(h))
		r.Route("/bookings", bookingRoutes(h))
	})
}

func userRoutes(h *Handlers) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/signup", h.Auth.Signup)
		r.Post("/login", h.Auth.Login)
		r.Get("/logout", h.Auth.Logout)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Patch("/reset-password/{token}", h.Auth.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMW.Authenticate)

			r.Patch("/update-my-password", h.Auth.UpdateMyPassword)
			r.Get("/me", h.Users.GetMe)
			r.Patch("/update-me", h.Users.UpdateMe)
			r.Delete("/delete-me", h.Users.DeleteMe)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMW.RequireRole(adminOnly...))

				r.Get("/", h.Users.ListUsers())
				r.Post("/", h.Users.CreateUser())
				r.Get("/{id}", h.Users.GetUser())
				r.Patch("/{id}", h.Users.UpdateUser())
				r.Delete("/{id}", h.Users.DeleteUser())
			})
		})
	}
}

func tourRoutes(h *Handlers) func(chi.Router) {
	return func(r chi.Router) {
		// Public reads; the soft middleware still resolves a principal when
		// a token is present.
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMW.SoftAuthenticate)

			r.Get("/", h.Tours.ListTours())
			r.Get("/top-5-cheap", h.Tours.AliasTopCheap(h.Tours.ListTours()))
			r.Get("/tour-stats", h.Tours.TourStats)
			r.Get("/tours-within/{distance}/center/{latlng}/unit/{unit}", h.Tours.ToursWithin)
			r.Get("/distances/{latlng}/unit/{unit}", h.Tours.Distances)
			r.Get("/{id}", h.Tours.GetTour())
		})

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMW.Authenticate)

			r.With(h.AuthMW.RequireRole(planViewers...)).
				Get("/monthly-plan/{year}", h.Tours.MonthlyPlan)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMW.RequireRole(tourManagers...))

				r.Post("/", h.Tours.CreateTour())
				r.Patch("/{id}", h.Tours.UpdateTour())
				r.Delete("/{id}", h.Tours.DeleteTour())
			})
		})

		// Nested reviews for one tour.
		r.Route("/{tourID}/reviews", func(r chi.Router) {
			r.Use(h.AuthMW.Authenticate)

			r.Get("/", h.Reviews.ListReviews())
			r.With(h.AuthMW.RequireRole(reviewAuthors...)).
				Post("/", h.Reviews.CreateReview())
		})
	}
}

func reviewRoutes(h *Handlers) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(h.AuthMW.Authenticate)

		r.Get("/", h.Reviews.ListReviews())
		r.Get("/{id}", h.Reviews.GetReview())
		r.With(h.AuthMW.RequireRole(reviewAuthors...)).
			Post("/", h.Reviews.CreateReview())

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMW.RequireRole(reviewModifiers...))

			r.Patch("/{id}", h.Reviews.UpdateReview())
			r.Delete("/{id}", h.Reviews.DeleteReview())
		})
	}
}

func bookingRoutes(h *Handlers) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(h.AuthMW.Authenticate)

		r.Get("/checkout-session/{tourID}", h.Bookings.CheckoutSession)
		r.Get("/my-bookings", h.Bookings.MyBookings)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMW.RequireRole(bookingManagers...))

			r.Get("/", h.Bookings.ListBookings())
			r.Post("/", h.Bookings.CreateBooking())
			r.Get("/{id}", h.Bookings.GetBooking())
			r.Patch("/{id}", h.Bookings.UpdateBooking())
			r.Delete("/{id}", h.Bookings.DeleteBooking())
		})
	}
}
