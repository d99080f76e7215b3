package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/insight-service/internal/services"
	"github.com/SAP-F-2025/insight-service/internal/utils"
)

type HandlerManager struct {
	insightHandler  *InsightHandler
	pipelineHandler *PipelineHandler
}

func NewHandlerManager(
	insightService services.InsightService,
	reportService services.ReportService,
	pipelineService services.PipelineService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		insightHandler:  NewInsightHandler(insightService, reportService, logger),
		pipelineHandler: NewPipelineHandler(pipelineService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		insights := v1.Group("/insights")
		{
			insights.GET("/:owner_id", hm.insightHandler.GetInsights)
			insights.GET("/:owner_id/:category", hm.insightHandler.GetInsight)
		}

		classes := v1.Group("/classes")
		{
			classes.POST("/:class_id/tests/:test_id/analyze", hm.pipelineHandler.Analyze)
			classes.GET("/:class_id/report", hm.insightHandler.ExportClassReport)
		}
	}
}
