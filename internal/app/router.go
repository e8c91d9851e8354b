package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/BnB-Initivatives/stox-prod-test/internal/catalog"
	"github.com/BnB-Initivatives/stox-prod-test/internal/inventory"
	"github.com/BnB-Initivatives/stox-prod-test/internal/observability"
	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/httpx"
	"github.com/BnB-Initivatives/stox-prod-test/internal/rbac"
	"github.com/BnB-Initivatives/stox-prod-test/jobs"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	InventoryHandler *inventory.Handler
	RBACHandler      *rbac.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	// Checks run on /healthz, keyed by the name reported on failure.
	Checks map[string]Pinger
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", healthz(params.Checks))

	r.Route("/api/v1", func(r chi.Router) {
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
		if params.RBACHandler != nil {
			params.RBACHandler.MountRoutes(r)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), r.Method+" not allowed on "+r.URL.Path)
	})

	return r
}

func healthz(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		failing := map[string]string{}
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				failing[name] = err.Error()
			}
		}
		if len(failing) > 0 {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failing": failing})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
