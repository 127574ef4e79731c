package expenses

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/artha-erp/artha-erp/internal/platform/httpx"
	"github.com/artha-erp/artha-erp/internal/rbac"
	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

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
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/post", h.post)
		r.Post("/{id}/void", h.void)
	})
}

type expenseRequest struct {
	Source        string  `json:"source" validate:"required,oneof=RAB PT_BANK PETTY"`
	ShareholderID *int64  `json:"shareholder_id"`
	AccountID     *int64  `json:"account_id"`
	CashboxID     *int64  `json:"cashbox_id"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	SpentAt       string  `json:"spent_at"`
	Description   string  `json:"description"`
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	}
	shareholderID, _ := strconv.ParseInt(r.URL.Query().Get("shareholder_id"), 10, 64)

	f := Filters{
		Source:        Source(r.URL.Query().Get("source")),
		Status:        Status(r.URL.Query().Get("status")),
		ShareholderID: shareholderID,
		Page:          page,
		Limit:         limit,
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return
		}
		f.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return
		}
		f.To = t
	}

	items, total, err := h.service.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list expenses failed", slog.Any("error", err))
		items = []Expense{}
		total = 0
	}
	if items == nil {
		items = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"expenses":   items,
		"pagination": internalshared.NewPagination(page, limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid expense ID")
		return
	}
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	e, ok := h.decodeExpense(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), e)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid expense ID")
		return
	}
	e, ok := h.decodeExpense(w, r)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), id, e); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid expense ID")
		return
	}
	if err := h.service.Post(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusPosted)})
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid expense ID")
		return
	}
	var req voidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Void(r.Context(), id, req.Reason); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusVoid)})
}

func (h *Handler) decodeExpense(w http.ResponseWriter, r *http.Request) (Expense, bool) {
	var req expenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return Expense{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Expense{}, false
	}
	e := Expense{
		Source:        Source(req.Source),
		ShareholderID: req.ShareholderID,
		AccountID:     req.AccountID,
		CashboxID:     req.CashboxID,
		Amount:        req.Amount,
		Description:   req.Description,
	}
	if req.SpentAt != "" {
		t, err := time.Parse("2006-01-02", req.SpentAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "spent_at must be YYYY-MM-DD")
			return Expense{}, false
		}
		e.SpentAt = t
	}
	return e, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidSource), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrReasonRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("expense request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
