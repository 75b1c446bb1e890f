package interview_module

import (
	"github.com/ethanbaker/interviewer/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the routes for the interview module
func RegisterRoutes(g *gin.RouterGroup) {
	authenticated := requireOwner

	// Candidate instructions
	g.GET("/instructions", authenticated, GetInstructions)
	g.GET("/questions", authenticated, GetQuestions)

	group := g.Group("/sessions")
	group.POST("", authenticated, CreateSession)

	// The room routes are reached through the session link, which carries no credential
	group.GET("/:id", GetSession)
	group.GET("/:id/status", GetStatus)
	group.POST("/:id/next-question", NextQuestion)
	group.POST("/:id/responses", SubmitResponse)
	group.POST("/:id/complete", CompleteSession)
	group.POST("/:id/token", IssueToken)

	group.GET("/:id/recordings", authenticated, GetRecordings)
}

// requireOwner verifies the bearer credential against the active service
func requireOwner(c *gin.Context) {
	if interviewService == nil {
		middleware.BearerAuth(nil)(c)
		return
	}
	middleware.BearerAuth(interviewService.verifier)(c)
}
