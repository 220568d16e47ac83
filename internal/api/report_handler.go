package api

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the snapshot-based analytics reports and their
// CSV export.
type ReportHandler struct {
	analyticsService service.AnalyticsService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(analyticsService service.AnalyticsService) *ReportHandler {
	return &ReportHandler{analyticsService: analyticsService}
}

// --- DTOs for API (Data Transfer Objects) ---

// ExportReportRequest names a report and an optional date window to export.
type ExportReportRequest struct {
	Kind string `json:"kind" binding:"required"`
	From string `json:"from"` // YYYY-MM-DD, optional
	To   string `json:"to"`   // YYYY-MM-DD, optional
}

// reportWindow pulls the optional from/to bounds off the query string.
func reportWindow(c *gin.Context) (domain.Date, domain.Date, bool) {
	from, ok := parseOptionalDateQuery(c, "from")
	if !ok {
		return "", "", false
	}
	to, ok := parseOptionalDateQuery(c, "to")
	if !ok {
		return "", "", false
	}
	return from, to, true
}

// --- Handler Methods ---

// GetExerciseUsageReport godoc
// @Summary Exercise usage report
// @Description Counts how often each exercise appeared in delivered classes, computed from execution snapshots. Most used first.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {array} service.ExerciseUsageRow
// @Failure 400 {object} gin.H "Invalid range"
// @Router /reports/exercise-usage [get]
func (h *ReportHandler) GetExerciseUsageReport(c *gin.Context) {
	from, to, ok := reportWindow(c)
	if !ok {
		return
	}

	rows, err := h.analyticsService.ExerciseUsageReport(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to compute report.")
		}
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetBodyRegionFocusReport godoc
// @Summary Body region focus report
// @Description Shows how delivered classes distributed across body regions, with primary and secondary counts and a percentage share.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {array} service.BodyRegionRow
// @Failure 400 {object} gin.H "Invalid range"
// @Router /reports/body-regions [get]
func (h *ReportHandler) GetBodyRegionFocusReport(c *gin.Context) {
	from, to, ok := reportWindow(c)
	if !ok {
		return
	}

	rows, err := h.analyticsService.BodyRegionFocusReport(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to compute report.")
		}
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetBenefitCoverageReport godoc
// @Summary Benefit coverage report
// @Description Counts the claimed benefits delivered across classes in the window.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {array} service.BenefitRow
// @Failure 400 {object} gin.H "Invalid range"
// @Router /reports/benefits [get]
func (h *ReportHandler) GetBenefitCoverageReport(c *gin.Context) {
	from, to, ok := reportWindow(c)
	if !ok {
		return
	}

	rows, err := h.analyticsService.BenefitCoverageReport(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to compute report.")
		}
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ExportReport godoc
// @Summary Export a report as CSV
// @Description Renders the named report as CSV, uploads it to object storage and returns a time-limited download link. Admin only.
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param export body ExportReportRequest true "Report kind and optional window"
// @Success 201 {object} service.ReportExportResult "Where to download the file"
// @Failure 400 {object} gin.H "Unknown report kind or invalid range"
// @Failure 403 {object} gin.H "Admin role required"
// @Router /reports/export [post]
func (h *ReportHandler) ExportReport(c *gin.Context) {
	var req ExportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	var from, to domain.Date
	var err error
	if req.From != "" {
		from, err = domain.ParseDate(req.From)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD.")
			return
		}
	}
	if req.To != "" {
		to, err = domain.ParseDate(req.To)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD.")
			return
		}
	}

	result, err := h.analyticsService.ExportReport(c.Request.Context(), service.ReportKind(req.Kind), from, to)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownReportKind):
			abortWithError(c, http.StatusBadRequest, "Unknown report kind: "+req.Kind)
		case errors.Is(err, service.ErrValidationFailed):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to export report.")
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}
