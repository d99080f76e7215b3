package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/insight-service/internal/services"
	"github.com/SAP-F-2025/insight-service/internal/utils"
)

type InsightHandler struct {
	BaseHandler
	insightService services.InsightService
	reportService  services.ReportService
}

func NewInsightHandler(
	insightService services.InsightService,
	reportService services.ReportService,
	logger utils.Logger,
) *InsightHandler {
	return &InsightHandler{
		BaseHandler:    NewBaseHandler(logger),
		insightService: insightService,
		reportService:  reportService,
	}
}

// GetInsights lists every insight record for an owner's (class, test)
// scope. test_id defaults to 0, the cumulative scope.
// @Router /insights/{owner_id} [get]
func (h *InsightHandler) GetInsights(c *gin.Context) {
	ownerID := ParseStringIDParam(c, "owner_id")
	if ownerID == "" {
		return
	}
	classID, ok := ParseUintQuery(c, "class_id", 0)
	if !ok {
		return
	}
	if classID == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "class_id is required"})
		return
	}
	testID, ok := ParseUintQuery(c, "test_id", 0)
	if !ok {
		return
	}

	records, err := h.insightService.GetInsights(c.Request.Context(), ownerID, classID, testID)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to load insights", err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Insights retrieved", records)
}

// GetInsight fetches a single category's record.
// @Router /insights/{owner_id}/{category} [get]
func (h *InsightHandler) GetInsight(c *gin.Context) {
	ownerID := ParseStringIDParam(c, "owner_id")
	if ownerID == "" {
		return
	}
	category, ok := utils.ParseCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unknown insight category", Details: c.Param("category")})
		return
	}
	classID, ok := ParseUintQuery(c, "class_id", 0)
	if !ok {
		return
	}
	if classID == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "class_id is required"})
		return
	}
	testID, ok := ParseUintQuery(c, "test_id", 0)
	if !ok {
		return
	}

	record, err := h.insightService.GetInsight(c.Request.Context(), ownerID, classID, testID, category)
	if err != nil {
		if errors.Is(err, services.ErrInsightNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "Insight not found"})
			return
		}
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to load insight", err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Insight retrieved", record)
}

// ExportClassReport streams the class report workbook.
// @Router /classes/{class_id}/tests/{test_id}/report [get]
func (h *InsightHandler) ExportClassReport(c *gin.Context) {
	classID := ParseUintParam(c, "class_id")
	if classID == 0 {
		return
	}
	testID, ok := ParseUintQuery(c, "test_id", 0)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting class report", "class_id", classID, "test_id", testID)
	data, err := h.reportService.ExportClassReport(c.Request.Context(), classID, testID)
	if err != nil {
		if errors.Is(err, services.ErrInsightNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "No insights to export"})
			return
		}
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to export report", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="class_report.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
