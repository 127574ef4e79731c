package ledger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/artha-erp/artha-erp/internal/platform/httpx"
	"github.com/artha-erp/artha-erp/internal/rbac"
	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireViewer())
		r.Get("/expense-grid", h.expenseGrid)
		r.Get("/balances/accounts", h.accountBalances)
		r.Get("/balances/cashboxes", h.cashboxBalances)
		r.Get("/balances/shareholders", h.shareholderBalances)
		r.Get("/po-payments", h.poPayments)
	})
}

func (h *Handler) expenseGrid(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	cells, err := h.service.ExpenseGrid(r.Context(), from, to)
	if err != nil {
		h.logger.Error("expense grid failed", slog.Any("error", err))
		cells = []ExpenseGridCell{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"from": from.String(), "to": to.String(), "cells": cells,
	})
}

func (h *Handler) accountBalances(w http.ResponseWriter, r *http.Request) {
	flows, err := h.service.AccountBalances(r.Context())
	if err != nil {
		h.logger.Error("account balances failed", slog.Any("error", err))
		flows = []AccountFlow{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": flows})
}

func (h *Handler) cashboxBalances(w http.ResponseWriter, r *http.Request) {
	flows, err := h.service.CashboxBalances(r.Context())
	if err != nil {
		h.logger.Error("cashbox balances failed", slog.Any("error", err))
		flows = []CashboxFlow{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cashboxes": flows})
}

func (h *Handler) shareholderBalances(w http.ResponseWriter, r *http.Request) {
	flows, err := h.service.ShareholderBalances(r.Context())
	if err != nil {
		h.logger.Error("shareholder balances failed", slog.Any("error", err))
		flows = []ShareholderFlow{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shareholders": flows})
}

func (h *Handler) poPayments(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.POPayments(r.Context())
	if err != nil {
		h.logger.Error("po payments failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_orders": balances})
}

// rangeParams reads from/to months, defaulting to the trailing year.
func (h *Handler) rangeParams(w http.ResponseWriter, r *http.Request) (internalshared.Month, internalshared.Month, bool) {
	now := time.Now()
	to := internalshared.MonthOf(now)
	from := internalshared.MonthOf(now.AddDate(-1, 1, 0))

	if raw := r.URL.Query().Get("from"); raw != "" {
		m, err := internalshared.ParseMonth(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM")
			return from, to, false
		}
		from = m
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		m, err := internalshared.ParseMonth(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM")
			return from, to, false
		}
		to = m
	}
	if to.Before(from) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must not precede from")
		return from, to, false
	}
	return from, to, true
}
