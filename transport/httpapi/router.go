// Package httpapi exposes the permission engine, lockout manager and audit
// log over a chi JSON API.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/service"
)

// Config wires the router.
type Config struct {
	Service       *service.Service
	Authenticator *Authenticator
	Logger        types.Logger
}

type handler struct {
	svc    *service.Service
	logger types.Logger
}

// NewRouter builds the HTTP handler. /healthz is unauthenticated; everything
// under /api/v1 requires a bearer token.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	h := &handler{svc: cfg.Service, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.Authenticator.Middleware)

		r.Get("/systems/{systemID}/pages", h.listPages)

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Get("/systems/{systemID}/role-matrix", h.roleMatrix)
			r.Get("/systems/{systemID}/users/{userID}/matrix", h.userMatrix)

			r.Get("/roles", h.listRoles)
			r.Post("/roles", h.createRole)
			r.Get("/roles/{roleID}", h.getRole)
			r.Patch("/roles/{roleID}", h.updateRole)
			r.Delete("/roles/{roleID}", h.deleteRole)
			r.Put("/roles/{roleID}/permissions", h.setRolePermissions)

			r.Get("/users", h.listUsers)
			r.Post("/users", h.createUser)
			r.Get("/users/{userID}", h.getUser)
			r.Put("/users/{userID}/role", h.changeUserRole)
			r.Put("/users/{userID}/status", h.setUserStatus)
			r.Put("/users/{userID}/permissions", h.setUserPermissions)
			r.Get("/users/{userID}/pages/{pageID}/permissions", h.effectivePermissions)
			r.Get("/users/{userID}/pages/{pageID}/check", h.checkPermission)
			r.Post("/users/{userID}/lock", h.lockUser)
			r.Post("/users/{userID}/unlock", h.unlockUser)

			r.Get("/locked-users", h.lockedUsers)
			r.Get("/unlock-history", h.unlockHistory)

			r.Get("/audit-logs", h.auditLogs)
			r.Get("/audit-logs/export.csv", h.exportCSV)
			r.Get("/audit-logs/export.xlsx", h.exportXLSX)
		})
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.HealthCheck(r.Context()); err != nil {
		h.logger.Error("health check failed", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
