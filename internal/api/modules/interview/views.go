package interview_module

import (
	"github.com/ethanbaker/interviewer/internal/lifecycle"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/ethanbaker/interviewer/pkg/sdk"
)

// toSessionResponse converts a session to its room view
func (s *InterviewService) toSessionResponse(session *interview.Session) sdk.SessionResponse {
	return sdk.SessionResponse{
		SessionID:            session.ID.String(),
		Status:               string(session.Status),
		RoomName:             session.RoomName,
		RoomSID:              session.RoomSID,
		Token:                session.AccessToken,
		Questions:            session.Questions,
		QuestionSource:       session.QuestionSource,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		CandidateName:        session.CandidateName,
		BotName:              s.botName,
		BotAvatar:            s.botAvatar,
		ErrorMessage:         session.ErrorMessage,
		CreatedAt:            session.CreatedAt,
	}
}

func toStatusResponse(session *interview.Session) sdk.StatusResponse {
	return sdk.StatusResponse{
		SessionID:            session.ID.String(),
		Status:               string(session.Status),
		RoomName:             session.RoomName,
		Questions:            session.Questions,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		TotalQuestions:       len(session.Questions),
		TotalResponses:       len(session.Responses),
		ReportDelivered:      session.ReportDelivered,
		CompletedAt:          session.CompletedAt,
	}
}

// ToCompleteResponse converts a completion result to its wire form
func ToCompleteResponse(result *lifecycle.Result) sdk.CompleteResponse {
	return sdk.CompleteResponse{
		SessionID:       result.SessionID.String(),
		Outcome:         string(result.Outcome),
		Status:          string(result.Status),
		Report:          result.Report,
		ReportSource:    result.ReportSource,
		ReportDelivered: result.Delivered,
		InProgress:      result.InProgress,
		TotalQuestions:  result.TotalQuestions,
		TotalResponses:  result.TotalResponses,
	}
}

func toRecordingsResponse(session *interview.Session, responses []*interview.Response) sdk.RecordingsResponse {
	recordings := make([]sdk.Recording, 0, len(responses))
	for _, r := range responses {
		recordings = append(recordings, sdk.Recording{
			QuestionIndex: r.QuestionIndex,
			Question:      session.Question(r.QuestionIndex),
			Response:      r.Transcription,
			Transcribed:   r.Transcribed,
			AudioFormat:   r.AudioFormat,
			CapturedAt:    r.CapturedAt,
		})
	}

	return sdk.RecordingsResponse{
		SessionID:  session.ID.String(),
		Status:     string(session.Status),
		Recordings: recordings,
	}
}
