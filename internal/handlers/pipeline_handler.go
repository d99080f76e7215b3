package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/insight-service/internal/services"
	"github.com/SAP-F-2025/insight-service/internal/utils"
)

type PipelineHandler struct {
	BaseHandler
	pipelineService services.PipelineService
}

func NewPipelineHandler(pipelineService services.PipelineService, logger utils.Logger) *PipelineHandler {
	return &PipelineHandler{
		BaseHandler:     NewBaseHandler(logger),
		pipelineService: pipelineService,
	}
}

// Analyze triggers an explicit pipeline run for a (class, test). The
// run continues in the background; 202 means it was accepted.
// @Router /classes/{class_id}/tests/{test_id}/analyze [post]
func (h *PipelineHandler) Analyze(c *gin.Context) {
	classID := ParseUintParam(c, "class_id")
	if classID == 0 {
		return
	}
	testID := ParseUintParam(c, "test_id")
	if testID == 0 {
		return
	}

	h.LogRequest(c, "Triggering analysis pipeline", "class_id", classID, "test_id", testID)

	logger := h.logger
	go func() {
		// Detached from the request: the pipeline outlives the HTTP
		// call.
		if err := h.pipelineService.Run(context.Background(), classID, testID); err != nil {
			if errors.Is(err, services.ErrAnalysisRunning) {
				logger.Warn("analysis already running", "class_id", classID, "test_id", testID)
				return
			}
			logger.LogError(err, "pipeline run failed", "class_id", classID, "test_id", testID)
		}
	}()

	h.RespondWithSuccess(c, http.StatusAccepted, "Analysis started", gin.H{
		"class_id": classID,
		"test_id":  testID,
	})
}
