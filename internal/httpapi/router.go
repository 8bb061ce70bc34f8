package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/auth"
)

const defaultMaxBodyBytes = 1 << 20

// Deps are the collaborators the HTTP API is built from.
type Deps struct {
	Auth           Authenticator
	Performance    PerformanceReader
	Ratings        RatingWriter
	Directory      Directory
	Logger         *zap.Logger
	AllowedOrigins []string
	// Checks are run by /readyz; any error makes the service unready.
	Checks       map[string]Checker
	MaxBodyBytes int64
	Now          func() time.Time
}

type Handler struct {
	auth        Authenticator
	performance PerformanceReader
	ratings     RatingWriter
	directory   Directory
	checks      map[string]Checker
	now         func() time.Time
}

// NewRouter builds the /api/v1 router with its middleware chain.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MaxBodyBytes == 0 {
		d.MaxBodyBytes = defaultMaxBodyBytes
	}
	h := &Handler{
		auth:        d.Auth,
		performance: d.Performance,
		ratings:     d.Ratings,
		directory:   d.Directory,
		checks:      d.Checks,
		now:         d.Now,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(d.Logger.Named("http")))
	r.Use(Recoverer)
	r.Use(CORS(d.AllowedOrigins))
	r.Use(BodyLimit(d.MaxBodyBytes))

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(d.Auth))
			h.registerAuthRoutes(r)
			h.registerDirectoryRoutes(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

func (h *Handler) registerAuthRoutes(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/secret", h.handleChangeSecret)
}

func (h *Handler) registerDirectoryRoutes(r chi.Router) {
	r.Route("/organizations", func(r chi.Router) {
		r.Get("/", h.handleListOrganizations)
		r.Post("/", h.handleCreateOrganization)
		r.Get("/{id}", h.handleGetOrganization)
	})

	r.Route("/branches", func(r chi.Router) {
		r.With(RequirePermission(auth.PermStaffRead)).Get("/", h.handleListBranches)
		r.With(RequirePermission(auth.PermBranchesWrite)).Post("/", h.handleCreateBranch)
		r.With(RequirePermission(auth.PermStaffRead)).Get("/{id}", h.handleGetBranch)
		r.With(RequirePermission(auth.PermBranchesWrite)).Put("/{id}", h.handleUpdateBranch)
		r.With(RequirePermission(auth.PermBranchesWrite)).Delete("/{id}", h.handleDeleteBranch)
		r.With(RequirePermission(auth.PermPerformanceRead)).Get("/{id}/performance", h.handleBranchPerformance)
	})

	r.Route("/staff", func(r chi.Router) {
		r.With(RequirePermission(auth.PermStaffRead)).Get("/", h.handleListStaff)
		r.With(RequirePermission(auth.PermStaffWrite)).Post("/", h.handleCreateStaff)
		r.Route("/{id}", func(r chi.Router) {
			r.With(RequirePermission(auth.PermStaffRead)).Get("/", h.handleGetStaff)
			r.With(RequirePermission(auth.PermStaffWrite)).Put("/", h.handleUpdateStaff)
			r.With(RequirePermission(auth.PermStaffWrite)).Delete("/", h.handleDeleteStaff)
			r.With(RequirePermission(auth.PermStaffRead)).Get("/managers", h.handleStaffManagers)
			r.With(RequirePermission(auth.PermRatingsSubmit)).Post("/ratings", h.handleSubmitRating)

			r.Group(func(r chi.Router) {
				r.Use(RequirePermission(auth.PermPerformanceRead))
				r.Get("/ratings", h.handleListRatings)
				r.Get("/performance", h.handleStaffPerformance)
				r.Get("/performance/series", h.handleStaffSeries)
				r.Get("/performance/change", h.handlePeriodChange)
				r.Get("/report.pdf", h.handleStaffReport)
			})
		})
	})

	r.Route("/accounts", func(r chi.Router) {
		r.With(RequirePermission(auth.PermAccountsWrite)).Get("/", h.handleListAccounts)
		r.With(RequirePermission(auth.PermAccountsWrite)).Post("/", h.handleCreateAccount)
		r.Get("/{id}", h.handleGetAccount)
		r.With(RequirePermission(auth.PermAccountsWrite)).Put("/{id}", h.handleUpdateAccount)
		r.With(RequirePermission(auth.PermAccountsWrite)).Delete("/{id}", h.handleDeactivateAccount)
		r.With(RequirePermission(auth.PermAccountsWrite)).Post("/{id}/secret", h.handleResetSecret)
	})

	r.With(RequirePermission(auth.PermPerformanceOrg)).Get("/performance/organization", h.handleOrganizationPerformance)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	success(w, r, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			loggerFrom(r.Context()).Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			status[name] = "unavailable"
			ready = false
			continue
		}
		status[name] = "ok"
	}
	if !ready {
		writeJSON(w, r, http.StatusServiceUnavailable, Envelope{
			Success: false,
			Data:    status,
			Error:   &Error{Code: "not_ready", Message: "dependencies unavailable"},
		})
		return
	}
	success(w, r, status)
}

func actorOf(r *http.Request) auth.Actor {
	actor, _ := auth.ActorFrom(r.Context())
	return actor
}
