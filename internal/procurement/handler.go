package procurement

import (
	"context"
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

// Handler exposes the JSON procurement endpoints.
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
		r.Get("/{id}/receipts", h.listReceipts)
		r.Get("/receipts/{grnID}", h.getReceipt)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Post("/", h.create)
		r.Post("/{id}/transition", h.transition)
		r.Post("/{id}/receipts", h.createReceipt)
		r.Post("/receipts/{grnID}/post", h.postReceipt)
		r.Post("/receipts/{grnID}/cancel", h.cancelReceipt)
	})
}

type poItemRequest struct {
	Description string  `json:"description" validate:"required"`
	Qty         float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type createPORequest struct {
	Number          string          `json:"po_number"`
	VendorID        int64           `json:"vendor_id" validate:"required,gt=0"`
	PODate          string          `json:"po_date"`
	DeliveryDate    string          `json:"delivery_date"`
	IsTaxIncluded   bool            `json:"is_tax_included"`
	TaxPercent      float64         `json:"tax_percent" validate:"gte=0"`
	PaymentTerm     string          `json:"payment_term" validate:"required,oneof=NET CBD COD"`
	TermDays        int             `json:"term_days" validate:"gte=0"`
	DueDateOverride string          `json:"due_date_override"`
	Note            string          `json:"note"`
	Items           []poItemRequest `json:"items" validate:"required,min=1,dive"`
}

type poTransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=ISSUED CLOSED CANCELLED"`
}

type grnLineRequest struct {
	POItemID    int64   `json:"po_item_id" validate:"required,gt=0"`
	QtyReceived float64 `json:"qty_received" validate:"required,gt=0"`
	Note        string  `json:"note"`
}

type createGRNRequest struct {
	Number     string           `json:"grn_number"`
	ReceivedAt string           `json:"received_at"`
	Note       string           `json:"note"`
	Lines      []grnLineRequest `json:"lines" validate:"required,min=1,dive"`
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
	vendorID, _ := strconv.ParseInt(r.URL.Query().Get("vendor_id"), 10, 64)

	filters := POFilters{
		VendorID: vendorID,
		Status:   POStatus(r.URL.Query().Get("status")),
		Search:   r.URL.Query().Get("search"),
		Page:     page,
		Limit:    limit,
	}
	items, total, err := h.service.ListPurchaseOrders(r.Context(), filters)
	if err != nil {
		h.logger.Error("list purchase orders failed", slog.Any("error", err))
		items = []PurchaseOrder{}
		total = 0
	}
	if items == nil {
		items = []PurchaseOrder{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchase_orders": items,
		"pagination":      internalshared.NewPagination(page, limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid PO ID")
		return
	}
	po, items, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if items == nil {
		items = []POItem{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchase_order": po,
		"items":          items,
		"subtotal":       Subtotal(items),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreatePOInput{
		Number:        req.Number,
		VendorID:      req.VendorID,
		IsTaxIncluded: req.IsTaxIncluded,
		TaxPercent:    req.TaxPercent,
		PaymentTerm:   PaymentTerm(req.PaymentTerm),
		TermDays:      req.TermDays,
		Note:          req.Note,
	}
	var err error
	if input.PODate, err = optionalDate(req.PODate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "po_date must be YYYY-MM-DD")
		return
	}
	if input.DeliveryDate, err = optionalDatePtr(req.DeliveryDate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "delivery_date must be YYYY-MM-DD")
		return
	}
	if input.DueDateOverride, err = optionalDatePtr(req.DueDateOverride); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date_override must be YYYY-MM-DD")
		return
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, POItemInput{Description: it.Description, Qty: it.Qty, UnitPrice: it.UnitPrice})
	}

	po, items, err := h.service.CreatePurchaseOrder(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"purchase_order": po,
		"items":          items,
		"subtotal":       Subtotal(items),
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid PO ID")
		return
	}
	var req poTransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.TransitionPurchaseOrder(r.Context(), id, POStatus(req.Status)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	poID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid PO ID")
		return
	}
	var req createGRNRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateGRNInput{POID: poID, Number: req.Number, Note: req.Note}
	if input.ReceivedAt, err = optionalDate(req.ReceivedAt); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "received_at must be YYYY-MM-DD")
		return
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, GRNLineInput{POItemID: l.POItemID, QtyReceived: l.QtyReceived, Note: l.Note})
	}

	grn, err := h.service.CreateGoodsReceipt(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grn)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	poID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid PO ID")
		return
	}
	items, err := h.service.ListGoodsReceipts(r.Context(), poID)
	if err != nil {
		h.logger.Error("list receipts failed", slog.Any("error", err), slog.Int64("po_id", poID))
		items = []GoodsReceipt{}
	}
	if items == nil {
		items = []GoodsReceipt{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"receipts": items})
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "grnID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid GRN ID")
		return
	}
	grn, lines, err := h.service.GetGoodsReceipt(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if lines == nil {
		lines = []GRNLine{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"receipt": grn, "lines": lines})
}

func (h *Handler) postReceipt(w http.ResponseWriter, r *http.Request) {
	h.receiptAction(w, r, h.service.PostGoodsReceipt, string(GRNStatusPosted))
}

func (h *Handler) cancelReceipt(w http.ResponseWriter, r *http.Request) {
	h.receiptAction(w, r, h.service.CancelGoodsReceipt, string(GRNStatusCancelled))
}

func (h *Handler) receiptAction(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) error, status string) {
	id, err := strconv.ParseInt(chi.URLParam(r, "grnID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid GRN ID")
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrDuplicateNumber):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, internalshared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "operation already processed")
	default:
		h.logger.Error("procurement request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func optionalDatePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
