package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ethanbaker/interviewer/internal/api/middleware"
	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/ethanbaker/interviewer/pkg/sdk"
	"github.com/ethanbaker/interviewer/pkg/utils"
)

// Runs an interview against a running API from the terminal. Each answer is
// read from an audio file path typed at the prompt.
func main() {
	// Load global config
	cfg := utils.NewConfigFromEnv(utils.GetEnvWithDefault("ENV_FILE", ".env"))

	verifier, err := middleware.NewVerifier(cfg.Get("JWT_SECRET_KEY"))
	if err != nil {
		log.Fatalf("[COMMANDLINE]: %v", err)
	}

	owner := interview.Owner{
		ID:    cfg.GetWithDefault("COMMANDLINE_OWNER_ID", "commandline-user"),
		Name:  cfg.GetWithDefault("COMMANDLINE_OWNER_NAME", "Commandline Candidate"),
		Email: cfg.Get("COMMANDLINE_OWNER_EMAIL"),
	}
	token, err := verifier.Sign(owner, time.Hour)
	if err != nil {
		log.Fatalf("[COMMANDLINE]: Failed to sign token: %v", err)
	}

	baseURL := cfg.GetWithDefault("API_URL", "http://localhost:"+cfg.GetWithDefault("API_PORT", "8080"))
	client := sdk.NewClient(baseURL, cfg.Get("API_KEY")).WithToken(token)

	// A resume file lets the API generate the questions
	req := &sdk.CreateSessionRequest{}
	if path := cfg.Get("RESUME_PATH"); path != "" {
		resume, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("[COMMANDLINE]: Failed to read resume: %v", err)
		}
		req.ResumeText = string(resume)
	}

	// Start interactive session
	if err := startInteractiveSession(context.Background(), client, req); err != nil {
		log.Fatalf("[COMMANDLINE]: Interview failed: %v", err)
	}
}

// startInteractiveSession walks one session from creation to its report
func startInteractiveSession(ctx context.Context, client *sdk.Client, req *sdk.CreateSessionRequest) error {
	session, err := client.CreateSession(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	fmt.Printf("Session created: %s (room %s, %s questions)\n", session.SessionID, session.RoomName, session.QuestionSource)
	fmt.Println("Enter a path to an audio file for each answer, 'skip' to move on, or 'exit' to finish early.")

	scanner := bufio.NewScanner(os.Stdin)
	index := session.CurrentQuestionIndex

	for index < len(session.Questions) {
		fmt.Printf("\nQ%d: %s\n> ", index+1, session.Questions[index])
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "exit" {
			break
		}

		if input != "" && input != "skip" {
			if err := submitFile(ctx, client, session.SessionID, index, input); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
		}

		next, err := client.NextQuestion(ctx, session.SessionID, true)
		if err != nil {
			return fmt.Errorf("failed to advance: %w", err)
		}
		index = next.CurrentQuestionIndex
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	result, err := client.Complete(ctx, session.SessionID)
	if err != nil {
		return fmt.Errorf("failed to complete: %w", err)
	}

	fmt.Printf("\n%s\n\n(report source: %s, delivered: %v)\n", result.Report, result.ReportSource, result.ReportDelivered)
	return nil
}

// submitFile uploads one audio file as the answer to question index
func submitFile(ctx context.Context, client *sdk.Client, sessionID string, index int, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	resp, err := client.SubmitResponse(ctx, sessionID, &sdk.SubmitResponseRequest{
		QuestionIndex: &index,
		AudioBlob:     base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Transcription: %s\n", resp.Transcription)
	return nil
}
