package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultDeepSeekBaseURL = "https://api.deepseek.com"

// OpenAI-compatible request/response wire types (unexported). DeepSeek and
// Ollama both accept this format, so ollama.go reuses these.

type apiChatRequest struct {
	Model          string       `json:"model"`
	Messages       []apiMessage `json:"messages"`
	Temperature    float64      `json:"temperature,omitempty"`
	MaxTokens      int          `json:"max_tokens,omitempty"`
	Stream         bool         `json:"stream"`
	ResponseFormat *apiRespFmt  `json:"response_format,omitempty"`
	Tools          []apiTool    `json:"tools,omitempty"`
}

type apiMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	ToolCalls  []apiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type apiRespFmt struct {
	Type string `json:"type"`
}

type apiTool struct {
	Type     string      `json:"type"` // always "function"
	Function apiFunction `json:"function"`
}

type apiFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type apiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function apiFunctionCall `json:"function"`
}

type apiFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type apiChatResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   *apiUsage   `json:"usage,omitempty"`
	Model   string      `json:"model"`
}

type apiChoice struct {
	Message      apiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// DeepSeekProvider implements Provider for the DeepSeek OpenAI-compatible API.
type DeepSeekProvider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewDeepSeekProvider creates a DeepSeek provider. baseURL may be empty to
// use the public endpoint.
func NewDeepSeekProvider(apiKey, baseURL string) *DeepSeekProvider {
	if baseURL == "" {
		baseURL = defaultDeepSeekBaseURL
	}
	return &DeepSeekProvider{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (d *DeepSeekProvider) Name() string { return "deepseek" }

func (d *DeepSeekProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("deepseek API key not configured — set DEEPSEEK_API_KEY")
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("deepseek request skipped (context already cancelled): %w", ctx.Err())
	}

	model := req.Model
	if model == "" {
		model = "deepseek-chat"
	}

	body := buildAPIRequest(model, req)

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	promptChars := 0
	for _, m := range body.Messages {
		promptChars += len(m.Content)
	}
	slog.Debug("DeepSeek request starting", "model", model, "prompt_chars", promptChars, "tools", len(req.Tools), "json_mode", req.JSONMode)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", d.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)

	start := time.Now()
	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepseek request failed (model=%s, elapsed=%s): %w", model, time.Since(start), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != 200 {
		errMsg := extractAPIError(respBody)
		if errMsg == "" {
			errMsg = string(respBody)
		}
		slog.Error("DeepSeek API error", "status", resp.StatusCode, "model", model, "error", errMsg)
		return nil, fmt.Errorf("deepseek returned status %d: %s", resp.StatusCode, errMsg)
	}

	out, err := parseAPIResponse(respBody, model, "deepseek")
	if err != nil {
		return nil, err
	}

	slog.Debug("DeepSeek request completed", "model", model, "elapsed", time.Since(start), "tokens", out.TokensUsed, "tool_calls", len(out.ToolCalls))
	return out, nil
}

// buildAPIRequest converts a provider-agnostic ChatRequest to the wire form.
func buildAPIRequest(model string, req ChatRequest) apiChatRequest {
	msgs := make([]apiMessage, len(req.Messages))
	for i, m := range req.Messages {
		am := apiMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			am.ToolCalls = append(am.ToolCalls, apiToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: apiFunctionCall{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		msgs[i] = am
	}

	body := apiChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}
	if req.JSONMode {
		body.ResponseFormat = &apiRespFmt{Type: "json_object"}
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, apiTool{
			Type:     "function",
			Function: apiFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}
	return body
}

// parseAPIResponse converts a wire response to the provider-agnostic form.
func parseAPIResponse(respBody []byte, model, provider string) (*ChatResponse, error) {
	var chatResp apiChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", provider, err)
	}

	tokensUsed := 0
	if chatResp.Usage != nil {
		tokensUsed = chatResp.Usage.TotalTokens
	}

	out := &ChatResponse{
		TokensUsed: tokensUsed,
		Model:      model,
		Provider:   provider,
	}
	if len(chatResp.Choices) > 0 {
		msg := chatResp.Choices[0].Message
		out.Content = msg.Content
		for _, tc := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
	return out, nil
}

// extractAPIError parses OpenAI-compatible JSON error responses to extract a
// human-readable message. Servers return either {"error":"message"} or
// {"error":{"message":"text","type":"api_error"}}.
func extractAPIError(body []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	return ""
}
