package interview_module

import (
	"fmt"
	"log"
	"time"

	"github.com/ethanbaker/interviewer/internal/delivery"
	"github.com/ethanbaker/interviewer/internal/lifecycle"
	"github.com/ethanbaker/interviewer/internal/questions"
	"github.com/ethanbaker/interviewer/internal/report"
	"github.com/ethanbaker/interviewer/internal/rooms"
	delivery_store "github.com/ethanbaker/interviewer/internal/stores/delivery"
	session_store "github.com/ethanbaker/interviewer/internal/stores/session"
	"github.com/ethanbaker/interviewer/internal/transcription"
	"github.com/ethanbaker/interviewer/pkg/utils"
	"github.com/go-sql-driver/mysql"
)

const (
	DefaultReportModel       = "gpt-4o-mini"
	DefaultDeliveryRetention = 30 * 24 * time.Hour
)

// buildOptions wires every collaborator named in the configuration. Missing
// optional backends degrade to the fallbacks the manager supports.
func (s *InterviewService) buildOptions(cfg *utils.Config) (*lifecycle.Options, error) {
	opts := &lifecycle.Options{
		Recipient:       cfg.Get("REPORT_RECIPIENT"),
		CompletionLease: cfg.GetDurationWithDefault("COMPLETION_LEASE", lifecycle.DefaultCompletionLease),
		CompletionWait:  cfg.GetDurationWithDefault("COMPLETION_WAIT", lifecycle.DefaultCompletionWait),
		DeliveryWindow:  cfg.GetDurationWithDefault("DELIVERY_WINDOW", lifecycle.DefaultDeliveryWindow),
		Normalizer:      transcription.NewNormalizer(cfg.Get("FFMPEG_PATH"), cfg.Get("AUDIO_TEMP_DIR")),
		Renderer:        report.NewPDFRenderer(),
	}

	if err := s.openStores(cfg, opts); err != nil {
		return nil, err
	}

	pruner, err := delivery_store.NewPruner(
		opts.Ledger,
		cfg.GetWithDefault("DELIVERY_PRUNE_SPEC", delivery_store.DefaultPruneSpec),
		cfg.GetDurationWithDefault("DELIVERY_RETENTION", DefaultDeliveryRetention),
		opts.DeliveryWindow,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery pruner: %w", err)
	}
	s.pruner = pruner

	provisioner, name, err := newRooms(cfg)
	if err != nil {
		return nil, err
	}
	opts.Rooms = provisioner
	s.wired["rooms"] = name

	// Speech-to-text and report drafting both need an OpenAI key
	if cfg.Has("OPENAI_API_KEY") {
		provider, err := transcription.NewOpenAIProvider(transcription.OpenAIOptions{
			APIKey:  cfg.Get("OPENAI_API_KEY"),
			BaseURL: cfg.Get("OPENAI_BASE_URL"),
			Model:   cfg.Get("TRANSCRIPTION_MODEL"),
		})
		if err != nil {
			return nil, err
		}
		opts.Transcriber = transcription.NewAdapter(provider)
		opts.Drafter = report.NewAgentDrafter(cfg.GetWithDefault("REPORT_MODEL", DefaultReportModel), cfg.Get("REPORT_PROMPT_PATH"))
		s.wired["transcription"] = "openai"
		s.wired["drafter"] = "openai-agents"

		opts.Generator = questions.NewAgentGenerator(
			cfg.GetWithDefault("QUESTION_MODEL", DefaultReportModel),
			cfg.Get("QUESTION_PROMPT_PATH"),
			cfg.GetIntWithDefault("QUESTION_COUNT", questions.DefaultCount),
		)
		s.wired["questions"] = "openai-agents"
	} else {
		log.Println("[INTERVIEW]: Warning, OPENAI_API_KEY not set, transcription is unavailable and reports use the fallback template")
		opts.Transcriber = transcription.NewAdapter(nil)
		s.wired["transcription"] = "unavailable"
		s.wired["drafter"] = "fallback"
		s.wired["questions"] = "bank"
	}

	if cfg.Has("SMTP_HOST") {
		sender, err := delivery.NewSMTPSender(delivery.SMTPOptions{
			Host:     cfg.Get("SMTP_HOST"),
			Port:     cfg.GetIntWithDefault("SMTP_PORT", 465),
			Username: cfg.Get("SMTP_USERNAME"),
			Password: cfg.Get("SMTP_PASSWORD"),
			From:     cfg.Get("REPORT_SENDER"),
		})
		if err != nil {
			return nil, err
		}
		opts.Sender = sender
		s.wired["delivery"] = "smtp"
	} else {
		log.Println("[INTERVIEW]: Warning, SMTP_HOST not set, reports will not be emailed")
		s.wired["delivery"] = "disabled"
	}

	if path := cfg.Get("INTERVIEW_CONFIG_PATH"); path != "" {
		bank, err := lifecycle.LoadQuestionBank(path)
		if err != nil {
			return nil, err
		}
		opts.Bank = bank
	}

	return opts, nil
}

// openStores opens the session store and delivery ledger on MySQL, or in
// memory when no database is configured
func (s *InterviewService) openStores(cfg *utils.Config, opts *lifecycle.Options) error {
	dbConfig := mysql.Config{
		User:      cfg.Get("MYSQL_USER"),
		Passwd:    cfg.Get("MYSQL_ROOT_PASSWORD"),
		Net:       "tcp",
		Addr:      fmt.Sprintf("%s:%s", cfg.GetWithDefault("MYSQL_HOST", "localhost"), cfg.GetWithDefault("MYSQL_PORT", "3306")),
		DBName:    cfg.Get("MYSQL_DATABASE"),
		ParseTime: true,
	}

	if dbConfig.DBName == "" {
		log.Println("[INTERVIEW]: Warning, MYSQL_DATABASE not set, using in-memory stores (data will not persist across restarts)")
		opts.Store = session_store.NewInMemoryStore()
		opts.Ledger = delivery_store.NewInMemoryLedger()
		s.wired["store"] = "memory"
		return nil
	}

	store, err := session_store.NewMySqlStore(dbConfig.FormatDSN())
	if err != nil {
		return err
	}
	s.closers = append(s.closers, store.Close)

	// The ledger shares the session store's connection pool
	ledger, err := delivery_store.NewMySqlLedgerFromDB(store.GetDB())
	if err != nil {
		return err
	}

	opts.Store = store
	opts.Ledger = ledger
	s.wired["store"] = "mysql"
	return nil
}

// newRooms returns the Twilio provisioner, or offline room naming when
// Twilio is not configured
func newRooms(cfg *utils.Config) (lifecycle.RoomProvisioner, string, error) {
	if !cfg.Has("TWILIO_ACCOUNT_SID") {
		log.Println("[INTERVIEW]: Warning, TWILIO_ACCOUNT_SID not set, rooms are named but not provisioned")
		return rooms.OfflineProvisioner{}, "offline", nil
	}

	if err := cfg.Require("TWILIO_AUTH_TOKEN", "TWILIO_API_KEY", "TWILIO_API_SECRET"); err != nil {
		return nil, "", err
	}

	provisioner, err := rooms.NewTwilioProvisioner(rooms.TwilioOptions{
		AccountSID:     cfg.Get("TWILIO_ACCOUNT_SID"),
		AuthToken:      cfg.Get("TWILIO_AUTH_TOKEN"),
		APIKey:         cfg.Get("TWILIO_API_KEY"),
		APISecret:      cfg.Get("TWILIO_API_SECRET"),
		StatusCallback: cfg.Get("TWILIO_STATUS_CALLBACK"),
	})
	if err != nil {
		return nil, "", err
	}
	return provisioner, "twilio", nil
}
