package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Health checks that the backend is up
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out ApiResponse[HealthResponse]
	if err := c.NewRequest(ctx, http.MethodGet, "/api/health", nil, &out).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// CreateSession creates a session owned by the bearer credential's subject
func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error) {
	var out ApiResponse[SessionResponse]
	if err := c.NewRequest(ctx, http.MethodPost, "/api/sessions", req, &out).WithBearer(c.token).doJSON(); err != nil {
		return nil, err
	}

	if out.Data.SessionID == "" {
		return nil, fmt.Errorf("no session id returned")
	}
	return &out.Data, nil
}

// GetSession returns the room view of a session
func (c *Client) GetSession(ctx context.Context, sessionID string) (*SessionResponse, error) {
	var out ApiResponse[SessionResponse]
	if err := c.NewRequest(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &out).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// GetStatus returns the progress of a session
func (c *Client) GetStatus(ctx context.Context, sessionID string) (*StatusResponse, error) {
	var out ApiResponse[StatusResponse]
	if err := c.NewRequest(ctx, http.MethodGet, sessionPath(sessionID, "/status"), nil, &out).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// NextQuestion advances to the next question, or replays the current one
// when isNewQuestion is false
func (c *Client) NextQuestion(ctx context.Context, sessionID string, isNewQuestion bool) (*AdvanceResponse, error) {
	req := &NextQuestionRequest{IsNewQuestion: &isNewQuestion}

	var out ApiResponse[AdvanceResponse]
	if err := c.NewRequest(ctx, http.MethodPost, sessionPath(sessionID, "/next-question"), req, &out).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// SubmitResponse uploads one recorded answer and returns its transcription
func (c *Client) SubmitResponse(ctx context.Context, sessionID string, req *SubmitResponseRequest) (*SubmitResponseResponse, error) {
	var out ApiResponse[SubmitResponseResponse]
	if err := c.NewRequest(ctx, http.MethodPost, sessionPath(sessionID, "/responses"), req, &out).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Complete finishes the session. Repeated calls return the recorded result.
func (c *Client) Complete(ctx context.Context, sessionID string) (*CompleteResponse, error) {
	var out ApiResponse[CompleteResponse]
	if err := c.NewRequest(ctx, http.MethodPost, sessionPath(sessionID, "/complete"), nil, &out).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Recordings lists the stored answers of a session owned by the bearer subject
func (c *Client) Recordings(ctx context.Context, sessionID string) (*RecordingsResponse, error) {
	var out ApiResponse[RecordingsResponse]
	if err := c.NewRequest(ctx, http.MethodGet, sessionPath(sessionID, "/recordings"), nil, &out).WithBearer(c.token).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// IssueToken requests a fresh room access token
func (c *Client) IssueToken(ctx context.Context, sessionID string) (*TokenResponse, error) {
	var out ApiResponse[TokenResponse]
	if err := c.NewRequest(ctx, http.MethodPost, sessionPath(sessionID, "/token"), nil, &out).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Instructions returns the candidate instructions
func (c *Client) Instructions(ctx context.Context) (*InstructionsResponse, error) {
	var out ApiResponse[InstructionsResponse]
	if err := c.NewRequest(ctx, http.MethodGet, "/api/instructions", nil, &out).WithBearer(c.token).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Questions returns the default question bank
func (c *Client) Questions(ctx context.Context) (*QuestionsResponse, error) {
	var out ApiResponse[QuestionsResponse]
	if err := c.NewRequest(ctx, http.MethodGet, "/api/questions", nil, &out).WithBearer(c.token).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Redeliver retries the report email of a completed session (admin)
func (c *Client) Redeliver(ctx context.Context, sessionID string) (*CompleteResponse, error) {
	path := "/api/admin/sessions/" + url.PathEscape(sessionID) + "/redeliver"

	var out ApiResponse[CompleteResponse]
	if err := c.NewRequest(ctx, http.MethodPost, path, nil, &out).WithApiKey(c.apiKey).doJSON(); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// sessionPath builds /api/sessions/{id}{suffix}
func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}
