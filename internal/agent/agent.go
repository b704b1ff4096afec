// Package agent builds invocable LLM agents: a provider, a model, an
// optional tool set, and a declared output format. An agent runs the
// chat/tool-call loop and captures the model's structured output.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/thinkscotty/medialens/internal/ai"
)

// maxToolRounds bounds the tool-call loop so a confused model cannot spin
// the browser forever.
const maxToolRounds = 8

// Tool pairs a tool declaration with its implementation. Run receives the
// model's raw JSON arguments and returns text fed back to the model.
type Tool struct {
	Def ai.ToolDef
	Run func(ctx context.Context, args json.RawMessage) (string, error)
}

// ToolDef builds a tool declaration from a JSON Schema string.
func ToolDef(name, description, parameters string) ai.ToolDef {
	return ai.ToolDef{Name: name, Description: description, Parameters: json.RawMessage(parameters)}
}

// OutputFormat declares the JSON shape the agent must produce. Schema is a
// human-readable JSON Schema embedded in the system prompt; models honor it
// best-effort, so callers validate the result themselves.
type OutputFormat struct {
	Name   string
	Schema string
}

// Response is the result of one agent invocation.
type Response struct {
	// Structured holds the raw JSON of the declared output format, or nil
	// when the model produced no parsable structured output.
	Structured json.RawMessage
	Content    string
	TokensUsed int
	ToolRounds int
}

// Agent is a single-use handle bound to one model, tool set, and output
// format. Agents hold no state between invocations; extraction creates a
// fresh one per source.
type Agent struct {
	provider ai.Provider
	model    string
	tools    []Tool
	format   OutputFormat
}

// New creates an agent. tools may be nil for phases that only need
// structured output generation.
func New(provider ai.Provider, model string, tools []Tool, format OutputFormat) *Agent {
	return &Agent{provider: provider, model: model, tools: tools, format: format}
}

// Invoke sends the prompt and runs the tool loop until the model answers
// without requesting tools, then extracts the structured output from the
// final message. A tool failure aborts the invocation with the tool's error.
func (a *Agent) Invoke(ctx context.Context, msgs []ai.Message) (*Response, error) {
	conversation := make([]ai.Message, 0, len(msgs)+2)
	conversation = append(conversation, ai.Message{Role: "system", Content: a.formatInstruction()})
	conversation = append(conversation, msgs...)

	defs := make([]ai.ToolDef, len(a.tools))
	byName := make(map[string]Tool, len(a.tools))
	for i, t := range a.tools {
		defs[i] = t.Def
		byName[t.Def.Name] = t
	}

	resp := &Response{}
	for round := 0; ; round++ {
		if round >= maxToolRounds {
			return nil, fmt.Errorf("no final answer after %d tool rounds", maxToolRounds)
		}

		chatResp, err := a.provider.Chat(ctx, ai.ChatRequest{
			Model:       a.model,
			Messages:    conversation,
			Temperature: 0.3,
			MaxTokens:   4096,
			JSONMode:    len(a.tools) == 0,
			Tools:       defs,
		})
		if err != nil {
			return nil, err
		}
		resp.TokensUsed += chatResp.TokensUsed

		if len(chatResp.ToolCalls) == 0 {
			resp.Content = chatResp.Content
			resp.ToolRounds = round
			resp.Structured = extractStructured(chatResp.Content)
			return resp, nil
		}

		conversation = append(conversation, ai.Message{
			Role:      "assistant",
			Content:   chatResp.Content,
			ToolCalls: chatResp.ToolCalls,
		})

		for _, call := range chatResp.ToolCalls {
			tool, ok := byName[call.Name]
			if !ok {
				return nil, fmt.Errorf("model requested unknown tool %q", call.Name)
			}
			slog.Debug("Running tool", "tool", call.Name, "round", round)
			result, err := tool.Run(ctx, json.RawMessage(call.Arguments))
			if err != nil {
				return nil, err
			}
			conversation = append(conversation, ai.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}
}

// formatInstruction builds the system preamble that declares the required
// output shape.
func (a *Agent) formatInstruction() string {
	return fmt.Sprintf(
		"When you have finished, respond with ONLY a JSON object matching the %s schema below. "+
			"No markdown fences, no commentary outside the JSON.\n\nSchema:\n%s",
		a.format.Name, a.format.Schema)
}

// extractStructured pulls a JSON object out of the model's final message.
// Returns nil when nothing parsable is present.
func extractStructured(content string) json.RawMessage {
	candidate := ai.ExtractJSON(content)
	if candidate == "" {
		return nil
	}
	if !json.Valid([]byte(candidate)) {
		return nil
	}
	return json.RawMessage(candidate)
}
