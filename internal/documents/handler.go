package documents

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/artha-erp/artha-erp/internal/platform/httpx"
	"github.com/artha-erp/artha-erp/internal/rbac"
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
		r.Get("/", h.listForEntity)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Post("/", h.ensure)
		r.Post("/{id}/versions", h.addVersion)
		r.Post("/versions/{versionID}/finalize", h.finalize)
	})
}

type ensureRequest struct {
	EntityType string `json:"entity_type" validate:"required"`
	EntityID   int64  `json:"entity_id" validate:"required,gt=0"`
	TypeCode   string `json:"type_code" validate:"required"`
}

type versionRequest struct {
	FileName  string `json:"file_name" validate:"required"`
	Hash      string `json:"hash" validate:"required,len=64,hexadecimal"`
	SizeBytes int64  `json:"size_bytes" validate:"gte=0"`
}

func (h *Handler) listForEntity(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	entityID, _ := strconv.ParseInt(r.URL.Query().Get("entity_id"), 10, 64)
	if entityType == "" || entityID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entity_type and entity_id are required")
		return
	}
	docs, err := h.service.ListForEntity(r.Context(), entityType, entityID)
	if err != nil {
		h.logger.Error("list documents failed", slog.Any("error", err))
		docs = []Document{}
	}
	if docs == nil {
		docs = []Document{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document ID")
		return
	}
	doc, versions, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if versions == nil {
		versions = []DocumentVersion{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"document": doc, "versions": versions})
}

func (h *Handler) ensure(w http.ResponseWriter, r *http.Request) {
	var req ensureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	doc, created, err := h.service.EnsureDocument(r.Context(), req.EntityType, req.EntityID, req.TypeCode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, doc)
}

func (h *Handler) addVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document ID")
		return
	}
	var req versionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	version, err := h.service.AddVersion(r.Context(), id, req.FileName, req.Hash, req.SizeBytes)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, version)
}

// finalize reads the raw uploaded bytes from the request body and verifies
// them against the version's declared hash.
func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	versionID, err := uuid.Parse(chi.URLParam(r, "versionID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid version ID")
		return
	}
	version, err := h.service.FinalizeVersion(r.Context(), versionID, r.Body)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, version)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrNotPending):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrHashMismatch):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Hash Mismatch", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("document request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
