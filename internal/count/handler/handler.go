package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-count-service/internal/auth"
	"github.com/fekuna/omnipos-count-service/internal/count"
	"github.com/fekuna/omnipos-count-service/internal/count/dto"
	"github.com/fekuna/omnipos-count-service/internal/count/updater"
	"github.com/fekuna/omnipos-count-service/internal/model"
	"github.com/fekuna/omnipos-count-service/pkg/httputil"
	"github.com/fekuna/omnipos-count-service/pkg/logger"
)

type CountHandler struct {
	uc     count.UseCase
	logger logger.ZapLogger

	mu       sync.Mutex
	updaters map[string]*updater.Service
}

func NewCountHandler(uc count.UseCase, log logger.ZapLogger) *CountHandler {
	return &CountHandler{
		uc:       uc,
		logger:   log,
		updaters: make(map[string]*updater.Service),
	}
}

func (h *CountHandler) MapRoutes(r chi.Router) {
	r.Route("/counts", func(r chi.Router) {
		r.Post("/", h.startCount)
		r.Get("/", h.listCounts)
		r.Route("/{countID}", func(r chi.Router) {
			r.Get("/", h.getCount)
			r.Get("/items", h.listCountItems)
			r.Put("/items/{itemID}", h.updateCountItem)
			r.Post("/items/{itemID}/entry", h.submitEntry)
			r.Get("/items/{itemID}/entry", h.entryState)
			r.Post("/complete", h.completeCount)
			r.Post("/cancel", h.cancelCount)
			r.Post("/void", h.voidCount)
		})
	})
}

// countUpdater returns the debounced write coalescer for a session,
// creating it on first use. Rapid scanner entries go through it instead
// of the direct PUT.
func (h *CountHandler) countUpdater(countID string) *updater.Service {
	h.mu.Lock()
	defer h.mu.Unlock()

	svc, ok := h.updaters[countID]
	if !ok {
		svc = updater.NewService(countID, updater.PersisterFunc(h.persistQuantity), updater.DefaultDebounce, h.logger)
		h.updaters[countID] = svc
	}
	return svc
}

func (h *CountHandler) persistQuantity(ctx context.Context, countID, itemID string, quantity float64) error {
	return h.uc.UpdateCountItem(ctx, &dto.UpdateCountItemInput{
		CountID:        countID,
		ItemID:         itemID,
		ActualQuantity: quantity,
	})
}

func (h *CountHandler) dropUpdater(countID string) {
	h.mu.Lock()
	svc, ok := h.updaters[countID]
	delete(h.updaters, countID)
	h.mu.Unlock()

	if ok {
		svc.Close()
	}
}

type startCountRequest struct {
	TemplateID *string `json:"template_id"`
	Notes      *string `json:"notes"`
}

func (h *CountHandler) startCount(w http.ResponseWriter, r *http.Request) {
	var req startCountRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.uc.StartCount(r.Context(), &dto.StartCountInput{
		OrganizationID: auth.OrganizationID(r.Context()),
		TeamID:         auth.TeamID(r.Context()),
		TemplateID:     req.TemplateID,
		ConductedBy:    auth.UserID(r.Context()),
		Notes:          req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, session)
}

func (h *CountHandler) listCounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := &dto.CountFilters{
		OrganizationID: auth.OrganizationID(r.Context()),
		TeamID:         auth.TeamID(r.Context()),
		Status:         q.Get("status"),
		IncludeVoided:  q.Get("include_voided") == "true",
		Page:           queryInt(q.Get("page"), 1),
		PageSize:       queryInt(q.Get("page_size"), 20),
	}

	sessions, total, err := h.uc.ListCounts(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"counts": sessions,
		"total":  total,
	})
}

func (h *CountHandler) getCount(w http.ResponseWriter, r *http.Request) {
	session, err := h.uc.GetCount(r.Context(), chi.URLParam(r, "countID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, session)
}

// listCountItems returns the enriched item rows. The optional
// warehouse_id query parameter adds that warehouse's daily settings and
// defaults to the threshold resolution.
func (h *CountHandler) listCountItems(w http.ResponseWriter, r *http.Request) {
	countID := chi.URLParam(r, "countID")
	if _, err := h.uc.GetCount(r.Context(), countID); err != nil {
		h.respondError(w, err)
		return
	}

	details, err := h.uc.GetCountItemDetails(r.Context(), countID, r.URL.Query().Get("warehouse_id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"items": details,
		"total": len(details),
	})
}

type updateCountItemRequest struct {
	ActualQuantity float64 `json:"actual_quantity"`
	Notes          *string `json:"notes"`
}

func (h *CountHandler) updateCountItem(w http.ResponseWriter, r *http.Request) {
	var req updateCountItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.uc.UpdateCountItem(r.Context(), &dto.UpdateCountItemInput{
		CountID:        chi.URLParam(r, "countID"),
		ItemID:         chi.URLParam(r, "itemID"),
		ActualQuantity: req.ActualQuantity,
		Notes:          req.Notes,
		CountedBy:      auth.UserID(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusNoContent, nil)
}

// submitEntry feeds a raw quantity string into the session's debounce
// coalescer. The write happens asynchronously; the response carries the
// per-item entry state the UI binds to.
func (h *CountHandler) submitEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	countID := chi.URLParam(r, "countID")
	session, err := h.uc.GetCount(r.Context(), countID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if session.Status != model.CountStatusInProgress {
		h.respondError(w, count.ErrCountClosed)
		return
	}

	itemID := chi.URLParam(r, "itemID")
	svc := h.countUpdater(countID)
	svc.Submit(itemID, req.Value)
	httputil.RespondJSON(w, http.StatusAccepted, svc.State(itemID))
}

func (h *CountHandler) entryState(w http.ResponseWriter, r *http.Request) {
	svc := h.countUpdater(chi.URLParam(r, "countID"))
	httputil.RespondJSON(w, http.StatusOK, svc.State(chi.URLParam(r, "itemID")))
}

func (h *CountHandler) completeCount(w http.ResponseWriter, r *http.Request) {
	countID := chi.URLParam(r, "countID")
	if err := h.uc.CompleteCount(r.Context(), countID); err != nil {
		h.respondError(w, err)
		return
	}
	h.dropUpdater(countID)

	session, err := h.uc.GetCount(r.Context(), countID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, session)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *CountHandler) cancelCount(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	countID := chi.URLParam(r, "countID")
	if err := h.uc.CancelCount(r.Context(), countID, req.Reason); err != nil {
		h.respondError(w, err)
		return
	}
	h.dropUpdater(countID)
	httputil.RespondJSON(w, http.StatusNoContent, nil)
}

func (h *CountHandler) voidCount(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Reason == "" {
		httputil.RespondError(w, http.StatusBadRequest, "void reason is required")
		return
	}
	if err := h.uc.VoidCount(r.Context(), chi.URLParam(r, "countID"), req.Reason); err != nil {
		h.respondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusNoContent, nil)
}

func (h *CountHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, count.ErrInvalidQuantity), errors.Is(err, count.ErrInvalidSource):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, count.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, count.ErrCountClosed), errors.Is(err, count.ErrEmptyCount),
		errors.Is(err, count.ErrNotCompleted), errors.Is(err, count.ErrAlreadyVoided):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("count handler error", zap.Error(err))
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
