package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/guardrails"
	"github.com/buchungsbutler/voiceagent/internal/llm"
	"github.com/buchungsbutler/voiceagent/internal/models"
	"github.com/buchungsbutler/voiceagent/internal/tenant"
	"github.com/buchungsbutler/voiceagent/internal/voice/stt"
	"github.com/buchungsbutler/voiceagent/internal/voice/tts"
)

// MaxAudioBytes caps uploaded recordings.
const MaxAudioBytes = 25 << 20

// MaxTranscriptRunes bounds a single spoken request passed to the LLM.
const MaxTranscriptRunes = 2000

const (
	fallbackResponse = "Entschuldigung, ich konnte Ihre Anfrage nicht verarbeiten."
	refusalResponse  = "Dabei kann ich Ihnen leider nicht helfen. Ich unterstütze Sie gerne bei Ihren Terminen."
)

type Appointments interface {
	Upcoming(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Appointment, error)
}

type Conversations interface {
	Save(ctx context.Context, c *models.Conversation) error
}

// InputGuard screens a transcription before it is sent to the LLM.
type InputGuard interface {
	CheckInput(ctx context.Context, text string) (*guardrails.Result, error)
}

// UsageLogger records LLM token usage.
type UsageLogger interface {
	LogLLMUsage(ctx context.Context, rec models.LLMUsageLog) error
}

type Config struct {
	Language     string
	Voice        string
	Location     *time.Location
	ContextLimit int
}

type Service struct {
	stt           stt.Provider
	tts           tts.Provider
	llm           llm.Gateway
	appointments  Appointments
	conversations Conversations
	usage         UsageLogger
	guard         InputGuard
	cfg           Config
}

func NewService(s stt.Provider, t tts.Provider, gw llm.Gateway, appts Appointments, convs Conversations, usage UsageLogger, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ContextLimit <= 0 {
		cfg.ContextLimit = 10
	}
	return &Service{stt: s, tts: t, llm: gw, appointments: appts, conversations: convs, usage: usage, cfg: cfg}
}

// WithGuard screens every transcription with g before it reaches the LLM.
func (s *Service) WithGuard(g InputGuard) *Service {
	s.guard = g
	return s
}

// Transcribe converts a recording to text. Provider failures and empty
// transcripts are reported the same way to the caller.
func (s *Service) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var company string
	if t := tenant.FromContext(ctx); t != nil {
		company = t.CompanyName
	}
	resp, err := s.stt.Transcribe(ctx, stt.TranscriptionRequest{
		Audio:    audio,
		Filename: filename,
		Language: s.cfg.Language,
		Prompt:   stt.HintFor(company),
	})
	if err != nil {
		slog.Error("transcription failed", "provider", s.stt.Name(), "error", err)
		return "", apperr.Invalid("Could not transcribe audio")
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", apperr.Invalid("Could not transcribe audio")
	}
	return text, nil
}

type ProcessResult struct {
	Transcription  string          `json:"transcription"`
	Response       string          `json:"response"`
	AudioBase64    *string         `json:"audio_base64"`
	CalendarAction json.RawMessage `json:"calendar_action"`
}

// Process answers a transcribed request using the tenant's calendar and
// stores the exchange. LLM and TTS failures degrade the answer instead of
// failing the request.
func (s *Service) Process(ctx context.Context, t *models.Tenant, user *models.User, transcription string) (*ProcessResult, error) {
	transcription = strings.TrimSpace(transcription)
	if transcription == "" {
		return nil, apperr.Invalid("transcription is required")
	}

	upcoming, err := s.appointments.Upcoming(ctx, t.ID, s.cfg.ContextLimit)
	if err != nil {
		return nil, err
	}

	var answer string
	if s.allowed(ctx, t, transcription) {
		answer = s.answer(ctx, t, user, transcription, CalendarContext(upcoming, s.cfg.Location))
	} else {
		answer = refusalResponse
	}

	result := &ProcessResult{
		Transcription:  transcription,
		Response:       answer,
		AudioBase64:    s.speak(ctx, answer),
		CalendarAction: json.RawMessage("null"),
	}

	conv := &models.Conversation{
		TenantID:      t.ID,
		UserID:        user.ID,
		Transcription: transcription,
		AgentResponse: answer,
	}
	if err := s.conversations.Save(ctx, conv); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) allowed(ctx context.Context, t *models.Tenant, transcription string) bool {
	if s.guard == nil {
		return true
	}
	res, err := s.guard.CheckInput(ctx, transcription)
	if err != nil {
		slog.Warn("guardrail check failed", "tenant_id", t.ID, "error", err)
		return true
	}
	if !res.Allowed {
		slog.Warn("transcription blocked", "tenant_id", t.ID, "reason", res.Reason, "flags", res.Flags)
	}
	return res.Allowed
}

func (s *Service) answer(ctx context.Context, t *models.Tenant, user *models.User, transcription, calendarContext string) string {
	system, err := systemPrompt(t.CompanyName, calendarContext)
	if err != nil {
		slog.Error("render system prompt", "error", err)
		return fallbackResponse
	}

	resp, err := s.llm.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{llm.SystemMessage(system), llm.UserMessage(transcription)},
	})
	if err != nil {
		slog.Error("voice agent response failed", "tenant_id", t.ID, "error", err)
		return fallbackResponse
	}

	if s.usage != nil {
		rec := models.LLMUsageLog{
			TenantID:     t.ID,
			UserID:       &user.ID,
			Provider:     resp.Provider,
			Model:        resp.Model,
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
			CostUSD:      resp.CostUSD,
			LatencyMs:    resp.LatencyMs,
		}
		if err := s.usage.LogLLMUsage(ctx, rec); err != nil {
			slog.Warn("log llm usage", "error", err)
		}
	}

	if strings.TrimSpace(resp.Content) == "" {
		return fallbackResponse
	}
	return resp.Content
}

func (s *Service) speak(ctx context.Context, text string) *string {
	res, err := s.tts.Synthesize(ctx, tts.SynthesisRequest{Input: text, Voice: s.cfg.Voice})
	if err != nil {
		slog.Error("speech synthesis failed", "provider", s.tts.Name(), "error", err)
		return nil
	}
	encoded := base64.StdEncoding.EncodeToString(res.Audio)
	return &encoded
}
