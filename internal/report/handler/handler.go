package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-count-service/internal/auth"
	"github.com/fekuna/omnipos-count-service/internal/report"
	"github.com/fekuna/omnipos-count-service/internal/report/dto"
	"github.com/fekuna/omnipos-count-service/pkg/httputil"
	"github.com/fekuna/omnipos-count-service/pkg/logger"
)

type ReportHandler struct {
	uc     report.UseCase
	logger logger.ZapLogger
}

func NewReportHandler(uc report.UseCase, log logger.ZapLogger) *ReportHandler {
	return &ReportHandler{uc: uc, logger: log}
}

func (h *ReportHandler) MapRoutes(r chi.Router) {
	r.Get("/reports/variance", h.varianceSummary)
}

func (h *ReportHandler) varianceSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.uc.VarianceSummary(r.Context(), &dto.ReportFilters{
		OrganizationID: auth.OrganizationID(r.Context()),
		TeamID:         auth.TeamID(r.Context()),
	})
	if err != nil {
		h.logger.Error("variance summary failed", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, summary)
}
