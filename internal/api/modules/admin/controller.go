package admin_module

import (
	"net/http"

	interview_module "github.com/ethanbaker/interviewer/internal/api/modules/interview"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/ethanbaker/interviewer/pkg/sdk"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RedeliverReport handles POST requests to resend the report of a completed session
func RedeliverReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Session not found", interview.ErrNotFound).AsGinResponse())
		return
	}

	manager := interview_module.GetManager()
	if manager == nil {
		c.JSON(sdk.NewErrorResponse(http.StatusServiceUnavailable, "Interview service not initialized", nil).AsGinResponse())
		return
	}

	result, err := manager.Redeliver(c.Request.Context(), id)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(interview_module.StatusFor(err), "Failed to redeliver report", err).AsGinResponse())
		return
	}

	message := "Report delivered"
	if !result.Delivered {
		message = "Report delivery failed"
	}

	c.JSON(sdk.NewSuccessResponse(message, interview_module.ToCompleteResponse(result)).AsGinResponse())
}
