package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/manoam/stocks-backend/internal/audit"
	"github.com/manoam/stocks-backend/internal/dashboard"
	"github.com/manoam/stocks-backend/internal/importer"
	"github.com/manoam/stocks-backend/internal/inventory"
	"github.com/manoam/stocks-backend/internal/masterdata/products"
	"github.com/manoam/stocks-backend/internal/masterdata/sites"
	"github.com/manoam/stocks-backend/internal/masterdata/suppliers"
	"github.com/manoam/stocks-backend/internal/masterdata/taxonomy"
	"github.com/manoam/stocks-backend/internal/observability"
	"github.com/manoam/stocks-backend/internal/orders"
	"github.com/manoam/stocks-backend/internal/packs"
	"github.com/manoam/stocks-backend/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	SitesHandler     *sites.Handler
	SuppliersHandler *suppliers.Handler
	ProductsHandler  *products.Handler
	TaxonomyHandler  *taxonomy.Handler
	InventoryHandler *inventory.Handler
	OrdersHandler    *orders.Handler
	PacksHandler     *packs.Handler
	DashboardHandler *dashboard.Handler
	ImporterHandler  *importer.Handler
	AuditHandler     *audit.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router serving the management console API.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.SitesHandler != nil {
			params.SitesHandler.MountRoutes(r)
		}
		if params.SuppliersHandler != nil {
			params.SuppliersHandler.MountRoutes(r)
		}
		if params.ProductsHandler != nil {
			params.ProductsHandler.MountRoutes(r)
		}
		if params.TaxonomyHandler != nil {
			params.TaxonomyHandler.MountRoutes(r)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
		if params.OrdersHandler != nil {
			params.OrdersHandler.MountRoutes(r)
		}
		if params.PacksHandler != nil {
			params.PacksHandler.MountRoutes(r)
		}
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		if params.ImporterHandler != nil {
			params.ImporterHandler.MountRoutes(r)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
