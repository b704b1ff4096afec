// Package ai contains the LLM provider abstraction and the HTTP clients
// behind it. All providers speak an OpenAI-compatible chat-completions
// surface so the agent layer can rely on function calling uniformly.
package ai

import (
	"context"
	"encoding/json"
)

// Provider is the interface that all LLM backends must implement.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string // "deepseek" or "ollama"
}

// ToolDef declares a callable tool offered to the model. Parameters is a
// JSON Schema object describing the arguments.
type ToolDef struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCall is a model-requested tool invocation. Arguments is the raw JSON
// argument string exactly as the model produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message represents a single message in a chat conversation.
type Message struct {
	Role       string // "system", "user", "assistant", "tool"
	Content    string
	ToolCalls  []ToolCall // assistant messages only
	ToolCallID string     // tool messages only
}

// ChatRequest is a provider-agnostic request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONMode    bool // request JSON-formatted output
	Tools       []ToolDef
}

// ChatResponse is a provider-agnostic response.
type ChatResponse struct {
	Content    string
	ToolCalls  []ToolCall // non-empty when the model wants tools run
	TokensUsed int
	Model      string
	Provider   string
}
