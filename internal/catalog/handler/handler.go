package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-count-service/internal/auth"
	"github.com/fekuna/omnipos-count-service/internal/catalog"
	"github.com/fekuna/omnipos-count-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-count-service/pkg/httputil"
	"github.com/fekuna/omnipos-count-service/pkg/logger"
)

type CatalogHandler struct {
	uc     catalog.UseCase
	logger logger.ZapLogger
}

func NewCatalogHandler(uc catalog.UseCase, log logger.ZapLogger) *CatalogHandler {
	return &CatalogHandler{uc: uc, logger: log}
}

func (h *CatalogHandler) MapRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.listItems)
		r.Get("/{itemID}", h.getItem)
	})
	r.Get("/templates/{templateID}/items", h.listTemplateItems)
	r.Route("/warehouses/{warehouseID}", func(r chi.Router) {
		r.Get("/settings", h.listWarehouseSettings)
		r.Post("/adjustments", h.adjustStock)
	})
	r.Get("/movements", h.listMovements)
}

func (h *CatalogHandler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := &dto.ItemFilters{
		OrganizationID: auth.OrganizationID(r.Context()),
		TeamID:         auth.TeamID(r.Context()),
		CategoryID:     q.Get("category_id"),
		SearchQuery:    q.Get("q"),
		Page:           queryInt(q.Get("page"), 1),
		PageSize:       queryInt(q.Get("page_size"), 20),
	}
	if raw := q.Get("is_active"); raw != "" {
		active := raw == "true"
		filters.IsActive = &active
	}

	items, total, err := h.uc.ListItems(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
	})
}

func (h *CatalogHandler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.uc.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if item == nil {
		httputil.RespondError(w, http.StatusNotFound, catalog.ErrNotFound.Error())
		return
	}
	httputil.RespondJSON(w, http.StatusOK, item)
}

func (h *CatalogHandler) listTemplateItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.uc.GetTemplateItems(r.Context(), chi.URLParam(r, "templateID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

func (h *CatalogHandler) listWarehouseSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.uc.GetWarehouseSettings(r.Context(), chi.URLParam(r, "warehouseID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"settings": settings,
		"total":    len(settings),
	})
}

type adjustStockRequest struct {
	ItemID         string  `json:"item_id"`
	QuantityChange float64 `json:"quantity_change"`
	Reason         string  `json:"reason"`
	ReferenceID    string  `json:"reference_id"`
	ReferenceType  string  `json:"reference_type"`
}

func (h *CatalogHandler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ItemID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	if req.QuantityChange == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "quantity_change must be non-zero")
		return
	}

	userID := ""
	if uid := auth.UserID(r.Context()); uid != nil {
		userID = *uid
	}

	wi, err := h.uc.AdjustWarehouseStock(r.Context(), &dto.AdjustStockInput{
		WarehouseID:    chi.URLParam(r, "warehouseID"),
		ItemID:         req.ItemID,
		QuantityChange: req.QuantityChange,
		Reason:         req.Reason,
		ReferenceID:    req.ReferenceID,
		ReferenceType:  req.ReferenceType,
		UserID:         userID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, wi)
}

func (h *CatalogHandler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := &dto.MovementFilters{
		WarehouseID:  q.Get("warehouse_id"),
		ItemID:       q.Get("item_id"),
		MovementType: q.Get("type"),
		Page:         queryInt(q.Get("page"), 1),
		PageSize:     queryInt(q.Get("page_size"), 20),
	}
	if raw := q.Get("start_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.StartDate = &t
		}
	}
	if raw := q.Get("end_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.EndDate = &t
		}
	}

	movements, total, err := h.uc.ListMovements(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
	})
}

func (h *CatalogHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrInsufficientStock):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrLockContention):
		httputil.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("catalog handler error", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}
