package provider

import (
	"context"
	"errors"
)

// Message represents a chat message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool results
}

// Response represents the output from the model.
type Response struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// ToolCall is a model-issued request to invoke a named function.
// Args carries the raw JSON argument object as emitted by the model.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// ToolDefinition declares a callable function offered to the model.
// Parameters is a JSON-schema object: {"type":"object","properties":{...},"required":[...]}.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Options bounds the model's sampling behavior. Fixed at construction.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Provider defines the interface for AI model interactions.
type Provider interface {
	// Chat sends a list of messages to the model and returns a response.
	// tools may be nil to offer the model no callable functions.
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error)

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider identifier (e.g., "stub", "openai").
	Name() string
}

// Verdict is the outcome of a moderation check.
type Verdict struct {
	Flagged    bool               `json:"flagged"`
	Categories map[string]bool    `json:"categories,omitempty"`
	Scores     map[string]float64 `json:"category_scores,omitempty"`
}

// Classifier checks raw user text against a moderation model.
// Providers without a moderation endpoint return ErrModerationUnsupported.
type Classifier interface {
	Moderate(ctx context.Context, text string) (*Verdict, error)
}

// ErrModerationUnsupported signals that the configured provider has no
// moderation endpoint. Callers are expected to fail open.
var ErrModerationUnsupported = errors.New("moderation is not supported by this provider")
