package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/artha-erp/artha-erp/internal/auth"
	"github.com/artha-erp/artha-erp/internal/capital"
	"github.com/artha-erp/artha-erp/internal/documents"
	"github.com/artha-erp/artha-erp/internal/expenses"
	"github.com/artha-erp/artha-erp/internal/ledger"
	ledgerexport "github.com/artha-erp/artha-erp/internal/ledger/export"
	"github.com/artha-erp/artha-erp/internal/masterdata/vendors"
	"github.com/artha-erp/artha-erp/internal/observability"
	"github.com/artha-erp/artha-erp/internal/procurement"
	"github.com/artha-erp/artha-erp/internal/reconcile"
	"github.com/artha-erp/artha-erp/internal/shared"
	"github.com/artha-erp/artha-erp/internal/shareholders"
	"github.com/artha-erp/artha-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	SessionManager      *shared.SessionManager
	AuthHandler         *auth.Handler
	VendorsHandler      *vendors.Handler
	ShareholderHandler  *shareholders.Handler
	CapitalHandler      *capital.Handler
	ProcurementHandler  *procurement.Handler
	ExpenseHandler      *expenses.Handler
	ReconcileHandler    *reconcile.Handler
	LedgerHandler       *ledger.Handler
	LedgerExportHandler *ledgerexport.Handler
	DocumentsHandler    *documents.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
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
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/vendors", params.VendorsHandler.MountRoutes)
		r.Route("/shareholders", params.ShareholderHandler.MountRoutes)
		r.Route("/capital", params.CapitalHandler.MountRoutes)
		r.Route("/purchase-orders", params.ProcurementHandler.MountRoutes)
		r.Route("/expenses", params.ExpenseHandler.MountRoutes)
		r.Route("/reconcile", params.ReconcileHandler.MountRoutes)
		r.Route("/ledger", func(r chi.Router) {
			params.LedgerHandler.MountRoutes(r)
			if params.LedgerExportHandler != nil {
				r.Route("/export", params.LedgerExportHandler.MountRoutes)
			}
		})
		r.Route("/documents", params.DocumentsHandler.MountRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
