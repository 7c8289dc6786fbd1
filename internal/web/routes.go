// routes.go -- Console route table.
package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/michame/console/internal/models"
)

// Mount registers every console page and action on r.
// /health and /metrics are left to the caller.
func (h *Handler) Mount(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.CSRFMiddleware)

		r.Get("/", h.Landing)
		r.Get(loginPath, h.LoginPage)
		r.Post(loginPath, h.Login)
		r.Post("/logout", h.Logout)

		// Session required routes
		r.Route(dashboardPath, func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Get("/", h.Dashboard)
			r.Get("/conversations", h.Conversations)
			r.Get("/analytics", h.Analytics)
			r.Get("/drivers", h.Drivers)
			r.Post("/rides/{id}/refresh", h.RefreshRide)

			// Role checks read the snapshot RequireSession put in context
			r.With(h.RequireRole(models.RoleOperator)).Post("/rides/{id}/cancel", h.CancelRide)

			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(models.RoleAdmin))
				r.Get("/users", h.Users)
				r.Post("/users", h.CreateUser)
				r.Post("/users/{id}/delete", h.DeleteUser)
				r.Post("/users/{id}/reset-password", h.ResetUserPassword)
				r.Get("/settings", h.Settings)
			})
		})
	})
}
