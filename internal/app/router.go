package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	derivationhttp "github.com/meridian-energy/meridian-docs/internal/derivation/http"
	moneyhttp "github.com/meridian-energy/meridian-docs/internal/money/http"
	numberinghttp "github.com/meridian-energy/meridian-docs/internal/numbering/http"
	"github.com/meridian-energy/meridian-docs/internal/observability"
	reportinghttp "github.com/meridian-energy/meridian-docs/internal/reporting/http"
	"github.com/meridian-energy/meridian-docs/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	NumberingHandler  *numberinghttp.Handler
	DerivationHandler *derivationhttp.Handler
	TotalsHandler     *moneyhttp.Handler
	ReportingHandler  *reportinghttp.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
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

	if params.NumberingHandler != nil {
		r.Route("/numbering", params.NumberingHandler.MountRoutes)
	}
	if params.DerivationHandler != nil {
		r.Route("/documents", params.DerivationHandler.MountRoutes)
	}
	if params.TotalsHandler != nil {
		r.Route("/totals", params.TotalsHandler.MountRoutes)
	}
	if params.ReportingHandler != nil {
		r.Route("/reports", params.ReportingHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
