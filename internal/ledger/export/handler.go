package export

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/artha-erp/artha-erp/internal/ledger"
	"github.com/artha-erp/artha-erp/internal/platform/httpx"
	"github.com/artha-erp/artha-erp/internal/rbac"
	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

// Handler serves CSV downloads of the ledger views.
type Handler struct {
	logger  *slog.Logger
	service *ledger.Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *ledger.Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireViewer())
		r.Get("/expense-grid.csv", h.expenseGrid)
		r.Get("/shareholder-balances.csv", h.shareholderBalances)
		r.Get("/po-payments.csv", h.poPayments)
	})
}

func (h *Handler) expenseGrid(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := internalshared.MonthOf(now.AddDate(-1, 1, 0))
	to := internalshared.MonthOf(now)
	if raw := r.URL.Query().Get("from"); raw != "" {
		m, err := internalshared.ParseMonth(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM")
			return
		}
		from = m
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		m, err := internalshared.ParseMonth(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM")
			return
		}
		to = m
	}

	cells, err := h.service.ExpenseGrid(r.Context(), from, to)
	if err != nil {
		h.logger.Error("export expense grid", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	writeCSVHeaders(w, "expense-grid.csv")
	if err := WriteExpenseGridCSV(w, cells); err != nil {
		h.logger.Error("write expense grid csv", slog.Any("error", err))
	}
}

func (h *Handler) shareholderBalances(w http.ResponseWriter, r *http.Request) {
	flows, err := h.service.ShareholderBalances(r.Context())
	if err != nil {
		h.logger.Error("export shareholder balances", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	writeCSVHeaders(w, "shareholder-balances.csv")
	if err := WriteShareholderBalancesCSV(w, flows); err != nil {
		h.logger.Error("write shareholder balances csv", slog.Any("error", err))
	}
}

func (h *Handler) poPayments(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.POPayments(r.Context())
	if err != nil {
		h.logger.Error("export po payments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	writeCSVHeaders(w, "po-payments.csv")
	if err := WritePOPaymentsCSV(w, balances); err != nil {
		h.logger.Error("write po payments csv", slog.Any("error", err))
	}
}

func writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
}
