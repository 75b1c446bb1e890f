package health

import (
	"github.com/ethanbaker/interviewer/pkg/sdk"
	"github.com/gin-gonic/gin"
)

// getStatus reports liveness and the wired backends
func getStatus(components func() map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := sdk.HealthResponse{Status: "ok"}
		if components != nil {
			resp.Components = components()
		}

		c.JSON(sdk.NewSuccessResponse("Service is healthy", resp).AsGinResponse())
	}
}
