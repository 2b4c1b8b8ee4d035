package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Replies are spoken back to the caller, so they are kept short and steady.
const (
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.3
)

// Provider abstracts a chat completion backend.
type Provider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}

// Gateway routes chat requests to the configured provider with retry and fallback.
type Gateway interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }
func UserMessage(text string) Message   { return Message{Role: RoleUser, Content: text} }

type ChatRequest struct {
	Provider    string
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

func (r *ChatRequest) applyDefaults() {
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.Temperature <= 0 {
		r.Temperature = DefaultTemperature
	}
}

type ChatResponse struct {
	ID           string
	Provider     string
	Model        string
	Content      string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	LatencyMs    int64
}
