package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/inventory-scanner/internal/app/dto"
	"github.com/mrops-br/inventory-scanner/internal/app/service"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/http/response"
)

// InventoryHandler handles HTTP requests for the inventory and product lookup
type InventoryHandler struct {
	inventory *service.InventoryService
	lookup    *service.LookupService
	logger    *slog.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventory *service.InventoryService, lookup *service.LookupService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventory: inventory,
		lookup:    lookup,
		logger:    logger,
	}
}

// ListItems handles GET /inventory
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.ListItems(r.Context())
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	response.JSON(w, http.StatusOK, items)
}

// GetItem handles GET /inventory/{symbol}
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	symbol, err := domain.ParseSymbol(chi.URLParam(r, "symbol"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	item, err := h.inventory.GetItem(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			response.Error(w, http.StatusNotFound, err)
		} else {
			response.Error(w, http.StatusInternalServerError, err)
		}
		return
	}

	response.JSON(w, http.StatusOK, item)
}

// UpsertItem handles PUT /inventory/{symbol}
func (h *InventoryHandler) UpsertItem(w http.ResponseWriter, r *http.Request) {
	symbol, err := domain.ParseSymbol(chi.URLParam(r, "symbol"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	var req dto.UpsertInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	if err := h.inventory.Commit(r.Context(), req.ToRecord(symbol)); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidProductName), errors.Is(err, domain.ErrInvalidSymbol):
			response.Error(w, http.StatusBadRequest, err)
		default:
			response.Error(w, http.StatusInternalServerError, err)
		}
		return
	}

	item, err := h.inventory.GetItem(r.Context(), symbol)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	response.JSON(w, http.StatusOK, item)
}

// Lookup handles GET /lookup/{symbol}
func (h *InventoryHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	symbol, err := domain.ParseSymbol(chi.URLParam(r, "symbol"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.lookup.Resolve(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			response.Error(w, http.StatusNotFound, domain.ErrProductNotFound)
		} else {
			response.Error(w, http.StatusInternalServerError, err)
		}
		return
	}

	response.JSON(w, http.StatusOK, dto.ToLookupResponse(res))
}
