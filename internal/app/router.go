package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/busanokirby/jc-web-v2/internal/catalog"
	"github.com/busanokirby/jc-web-v2/internal/integrity"
	"github.com/busanokirby/jc-web-v2/internal/observability"
	"github.com/busanokirby/jc-web-v2/internal/recon"
	"github.com/busanokirby/jc-web-v2/internal/repairs"
	"github.com/busanokirby/jc-web-v2/internal/sales"
	"github.com/busanokirby/jc-web-v2/internal/stock"
	"github.com/busanokirby/jc-web-v2/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	StockHandler     *stock.Handler
	SalesHandler     *sales.Handler
	RepairsHandler   *repairs.Handler
	ReconHandler     *recon.Handler
	IntegrityHandler *integrity.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
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

	if params.CatalogHandler != nil {
		r.Route("/products", params.CatalogHandler.MountRoutes)
	}
	if params.StockHandler != nil {
		r.Route("/stock", params.StockHandler.MountRoutes)
	}
	if params.SalesHandler != nil {
		r.Route("/sales", params.SalesHandler.MountRoutes)
	}
	if params.RepairsHandler != nil {
		r.Route("/repairs", params.RepairsHandler.MountRoutes)
	}
	if params.ReconHandler != nil {
		r.Route("/reports", params.ReconHandler.MountRoutes)
	}
	if params.IntegrityHandler != nil {
		r.Route("/admin/integrity", params.IntegrityHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
