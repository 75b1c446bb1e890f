package interview_module

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ethanbaker/interviewer/internal/api/middleware"
	"github.com/ethanbaker/interviewer/internal/lifecycle"
	"github.com/ethanbaker/interviewer/internal/transcription"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/ethanbaker/interviewer/pkg/sdk"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateSession handles POST requests to create a session for the caller
func CreateSession(c *gin.Context) {
	owner, ok := middleware.OwnerFrom(c)
	if !ok {
		c.JSON(sdk.NewErrorResponse(http.StatusUnauthorized, "No authenticated owner", nil).AsGinResponse())
		return
	}

	// An empty body uses the default question bank
	var req sdk.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	var (
		session *interview.Session
		err     error
	)
	if len(req.Questions) == 0 && strings.TrimSpace(req.ResumeText) != "" {
		session, err = interviewService.manager.CreateFromResume(c.Request.Context(), owner, req.ResumeText)
	} else {
		session, err = interviewService.manager.Create(c.Request.Context(), owner, req.Questions)
	}
	if err != nil {
		if session != nil {
			// Provisioning failed after the session was stored in error
			c.JSON(sdk.NewErrorResponse(StatusFor(err), "Failed to provision interview room", gin.H{
				"session_id": session.ID.String(),
				"status":     string(session.Status),
				"detail":     err.Error(),
			}).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(StatusFor(err), "Failed to create session", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session created successfully", interviewService.toSessionResponse(session)).AsGinResponse())
}

// GetSession handles GET requests for the room view of a session
func GetSession(c *gin.Context) {
	session, ok := loadSession(c)
	if !ok {
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session retrieved successfully", interviewService.toSessionResponse(session)).AsGinResponse())
}

// GetStatus handles GET requests for the progress of a session
func GetStatus(c *gin.Context) {
	session, ok := loadSession(c)
	if !ok {
		return
	}

	c.JSON(sdk.NewSuccessResponse("Status retrieved successfully", toStatusResponse(session)).AsGinResponse())
}

// NextQuestion handles POST requests to advance or replay the current question
func NextQuestion(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	// A missing body or flag advances, matching the room's "Next Question" button
	var req sdk.NextQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}
	isNewQuestion := req.IsNewQuestion == nil || *req.IsNewQuestion

	advance, err := interviewService.manager.AdvanceQuestion(c.Request.Context(), id, isNewQuestion)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(StatusFor(err), "Failed to move to next question", err).AsGinResponse())
		return
	}

	message := "Moved to next question"
	if !isNewQuestion {
		message = "Current question retrieved"
	} else if !advance.HasMore {
		message = "No more questions"
	}

	c.JSON(sdk.NewSuccessResponse(message, sdk.AdvanceResponse{
		CurrentQuestionIndex: advance.Index,
		Question:             advance.Question,
		HasMoreQuestions:     advance.HasMore,
		TotalQuestions:       advance.Total,
	}).AsGinResponse())
}

// SubmitResponse handles POST requests carrying one recorded answer
func SubmitResponse(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req sdk.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	audio, format, err := transcription.DecodeDataURL(req.AudioBlob)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not decode audio", err).AsGinResponse())
		return
	}
	if req.Format != "" {
		format = transcription.Format(req.Format)
	}

	text, err := interviewService.manager.RecordResponse(c.Request.Context(), id, *req.QuestionIndex, audio, format)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(StatusFor(err), "Failed to record response", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Response recorded successfully", sdk.SubmitResponseResponse{
		QuestionIndex: *req.QuestionIndex,
		Transcription: text,
	}).AsGinResponse())
}

// CompleteSession handles POST requests to finish a session. Repeated and
// concurrent calls return the same recorded report.
func CompleteSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := interviewService.manager.Complete(c.Request.Context(), id)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(StatusFor(err), "Failed to complete interview", err).AsGinResponse())
		return
	}

	message := "Interview completed successfully"
	if result.InProgress {
		message = "Interview completion is in progress"
	} else if result.Outcome != lifecycle.OutcomeAccepted {
		message = "Interview already completed"
	}

	c.JSON(sdk.NewSuccessResponse(message, ToCompleteResponse(result)).AsGinResponse())
}

// IssueToken handles POST requests for a fresh room access token
func IssueToken(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	room, err := interviewService.manager.IssueToken(c.Request.Context(), id)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(StatusFor(err), "Failed to issue token", err).AsGinResponse())
		return
	}

	session, ok := loadSession(c)
	if !ok {
		return
	}

	c.JSON(sdk.NewSuccessResponse("Token issued successfully", sdk.TokenResponse{
		Token:                room.AccessToken,
		RoomName:             room.Name,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		Questions:            session.Questions,
	}).AsGinResponse())
}

// GetRecordings handles GET requests for the stored answers of the caller's session
func GetRecordings(c *gin.Context) {
	owner, ok := middleware.OwnerFrom(c)
	if !ok {
		c.JSON(sdk.NewErrorResponse(http.StatusUnauthorized, "No authenticated owner", nil).AsGinResponse())
		return
	}

	id, ok := sessionID(c)
	if !ok {
		return
	}

	responses, err := interviewService.manager.Recordings(c.Request.Context(), id, owner.ID)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(StatusFor(err), "Failed to get recordings", err).AsGinResponse())
		return
	}

	session, ok := loadSession(c)
	if !ok {
		return
	}

	c.JSON(sdk.NewSuccessResponse("Recordings retrieved successfully", toRecordingsResponse(session, responses)).AsGinResponse())
}

// GetInstructions handles GET requests for the candidate instructions
func GetInstructions(c *gin.Context) {
	instructions := interviewService.manager.Instructions()

	c.JSON(sdk.NewSuccessResponse("Instructions retrieved successfully", sdk.InstructionsResponse{
		GeneralRules:          instructions.GeneralRules,
		InterviewFormat:       instructions.InterviewFormat,
		TechnicalRequirements: instructions.TechnicalRequirements,
		PreparationTips:       instructions.PreparationTips,
	}).AsGinResponse())
}

// GetQuestions handles GET requests for the default question set
func GetQuestions(c *gin.Context) {
	c.JSON(sdk.NewSuccessResponse("Questions retrieved successfully", sdk.QuestionsResponse{
		Questions: interviewService.manager.Questions(),
	}).AsGinResponse())
}

// StatusFor maps lifecycle errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, interview.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, interview.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, interview.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, interview.ErrProvisioning):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// sessionID parses the :id path parameter. Malformed ids name no session.
func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Session not found", interview.ErrNotFound).AsGinResponse())
		return uuid.Nil, false
	}
	return id, true
}

// loadSession fetches the session named by the path, writing the error reply on failure
func loadSession(c *gin.Context) (*interview.Session, bool) {
	id, ok := sessionID(c)
	if !ok {
		return nil, false
	}

	session, err := interviewService.manager.GetSession(c.Request.Context(), id)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(StatusFor(err), "Session not found", err).AsGinResponse())
		return nil, false
	}
	return session, true
}
