package capital

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/artha-erp/artha-erp/internal/platform/httpx"
	"github.com/artha-erp/artha-erp/internal/rbac"
	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

// Handler exposes the JSON endpoints for plans, contributions, allocations
// and position summaries.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireViewer())
		r.Get("/plans", h.listPlans)
		r.Get("/plans/{id}", h.getPlan)
		r.Get("/plans/{id}/contributions", h.listContributions)
		r.Get("/allocations", h.listAllocations)
		r.Get("/positions/{shareholderID}", h.position)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Post("/plans", h.createPlan)
		r.Post("/plans/{id}/transition", h.transitionPlan)
		r.Post("/plans/{id}/contributions", h.recordContribution)
		r.Put("/allocations", h.upsertAllocation)
	})
}

type planRequest struct {
	Period      string          `json:"period" validate:"required"`
	TargetTotal decimal.Decimal `json:"target_total" validate:"required"`
	Note        string          `json:"note"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=DRAFT ACTIVE CLOSED"`
}

type contributionRequest struct {
	ShareholderID int64           `json:"shareholder_id" validate:"required,gt=0"`
	AccountID     *int64          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	PaidAt        string          `json:"paid_at"`
	Note          string          `json:"note"`
}

type allocationRequest struct {
	ShareholderID int64           `json:"shareholder_id" validate:"required,gt=0"`
	Month         string          `json:"month" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Note          string          `json:"note"`
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		h.logger.Error("list plans failed", slog.Any("error", err))
		plans = []Plan{}
	}
	if plans == nil {
		plans = []Plan{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid plan ID")
		return
	}
	plan, err := h.service.GetPlan(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	plan, err := h.service.CreatePlan(r.Context(), Plan{
		Period:      req.Period,
		TargetTotal: req.TargetTotal,
		Note:        req.Note,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, plan)
}

func (h *Handler) transitionPlan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid plan ID")
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.TransitionPlan(r.Context(), id, req.Status); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Handler) listContributions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid plan ID")
		return
	}
	items, err := h.service.ListContributions(r.Context(), id)
	if err != nil {
		h.logger.Error("list contributions failed", slog.Any("error", err), slog.Int64("plan_id", id))
		items = []Contribution{}
	}
	if items == nil {
		items = []Contribution{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"contributions": items})
}

func (h *Handler) recordContribution(w http.ResponseWriter, r *http.Request) {
	planID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid plan ID")
		return
	}
	var req contributionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	c := Contribution{
		PlanID:        planID,
		ShareholderID: req.ShareholderID,
		AccountID:     req.AccountID,
		Amount:        req.Amount,
		Note:          req.Note,
	}
	if req.PaidAt != "" {
		paidAt, err := time.Parse("2006-01-02", req.PaidAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "paid_at must be YYYY-MM-DD")
			return
		}
		c.PaidAt = paidAt
	}

	created, err := h.service.RecordContribution(r.Context(), c)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) upsertAllocation(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	month, err := internalshared.ParseMonth(req.Month)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	alloc, err := h.service.UpsertMonthlyAllocation(r.Context(), req.ShareholderID, month, req.Amount, req.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, alloc)
}

func (h *Handler) listAllocations(w http.ResponseWriter, r *http.Request) {
	shareholderID, err := strconv.ParseInt(r.URL.Query().Get("shareholder_id"), 10, 64)
	if err != nil || shareholderID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "shareholder_id query parameter required")
		return
	}
	through, err := h.monthParam(r, "through")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	items, err := h.service.ListAllocations(r.Context(), shareholderID, through)
	if err != nil {
		h.logger.Error("list allocations failed", slog.Any("error", err), slog.Int64("shareholder_id", shareholderID))
		items = []RabAllocation{}
	}
	if items == nil {
		items = []RabAllocation{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"allocations": items})
}

func (h *Handler) position(w http.ResponseWriter, r *http.Request) {
	shareholderID, err := strconv.ParseInt(chi.URLParam(r, "shareholderID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shareholder ID")
		return
	}
	asOf, err := h.monthParam(r, "as_of")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	pos, err := h.service.SummarizeShareholderPosition(r.Context(), shareholderID, asOf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pos)
}

// monthParam reads a YYYY-MM query parameter, defaulting to the current
// month when absent.
func (h *Handler) monthParam(r *http.Request, name string) (internalshared.Month, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return internalshared.MonthOf(time.Now()), nil
	}
	return internalshared.ParseMonth(raw)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, internalshared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, internalshared.ErrInvalidPlanTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrPercentOutOfRange),
		errors.Is(err, ErrTargetNotPositive),
		errors.Is(err, ErrNegativeAmount),
		errors.Is(err, ErrPeriodRequired),
		errors.Is(err, internalshared.ErrInvalidMonth):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("capital request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
