package interview_module

import (
	"fmt"
	"log"
	"maps"

	"github.com/ethanbaker/interviewer/internal/api/middleware"
	"github.com/ethanbaker/interviewer/internal/lifecycle"
	delivery_store "github.com/ethanbaker/interviewer/internal/stores/delivery"
	"github.com/ethanbaker/interviewer/pkg/utils"
)

const (
	DefaultBotName   = "AI Interviewer"
	DefaultBotAvatar = "/static/bot-avatar.png"
)

// InterviewService holds the lifecycle manager and the resources opened for it
type InterviewService struct {
	manager  *lifecycle.Manager
	verifier *middleware.Verifier

	botName   string
	botAvatar string

	pruner  *delivery_store.Pruner
	closers []func() error
	wired   map[string]string
}

var interviewService *InterviewService

/** ---- INIT ---- */

// Init builds the interview service from configuration
func Init(cfg *utils.Config) error {
	verifier, err := middleware.NewVerifier(cfg.Get("JWT_SECRET_KEY"))
	if err != nil {
		return err
	}

	svc := &InterviewService{
		verifier:  verifier,
		botName:   cfg.GetWithDefault("INTERVIEW_BOT_NAME", DefaultBotName),
		botAvatar: cfg.GetWithDefault("INTERVIEW_BOT_AVATAR", DefaultBotAvatar),
		wired:     map[string]string{},
	}

	opts, err := svc.buildOptions(cfg)
	if err != nil {
		svc.Close()
		return err
	}

	manager, err := lifecycle.NewManager(opts)
	if err != nil {
		svc.Close()
		return fmt.Errorf("failed to create lifecycle manager: %w", err)
	}
	svc.manager = manager

	if svc.pruner != nil {
		svc.pruner.Start()
	}

	interviewService = svc
	log.Printf("[INTERVIEW]: service ready (%v)\n", svc.wired)
	return nil
}

// NewService wraps an existing manager. It is used by tests and by tools that
// build their own collaborators.
func NewService(manager *lifecycle.Manager, verifier *middleware.Verifier) *InterviewService {
	return &InterviewService{
		manager:   manager,
		verifier:  verifier,
		botName:   DefaultBotName,
		botAvatar: DefaultBotAvatar,
		wired:     map[string]string{},
	}
}

// Use installs svc as the service behind the module's handlers
func Use(svc *InterviewService) {
	interviewService = svc
}

// GetManager returns the lifecycle manager of the active service
func GetManager() *lifecycle.Manager {
	if interviewService == nil {
		return nil
	}
	return interviewService.manager
}

// Components reports which backend serves each collaborator
func Components() map[string]string {
	if interviewService == nil {
		return nil
	}

	return maps.Clone(interviewService.wired)
}

// Shutdown stops background jobs and closes the active service's resources
func Shutdown() {
	if interviewService != nil {
		interviewService.Close()
	}
}

// Close stops the pruner and closes every opened resource
func (s *InterviewService) Close() {
	if s.pruner != nil {
		s.pruner.Stop()
	}

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Printf("[INTERVIEW]: failed to close resource: %v\n", err)
		}
	}
	s.closers = nil
}
