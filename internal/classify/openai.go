package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/amishk599/jobintake/internal/extract"
	"github.com/amishk599/jobintake/internal/model"
)

// LLMProvider turns a prompt into the model's raw text answer.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	systemPrompt      = "You triage a job seeker's inbox. Answer only with the requested JSON."
	verdictSchemaName = "message_verdict"
	maxResponseBytes  = 1 << 20
)

// verdictSchema is sent as a strict json_schema response format, so a
// conforming server can only answer {reject, reason}.
var verdictSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"reject": map[string]any{"type": "boolean"},
		"reason": map[string]any{"type": "string"},
	},
	"required": []string{"reject", "reason"},
}

// OpenAIProvider talks to any server implementing the OpenAI
// /chat/completions API.
type OpenAIProvider struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAIProvider(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIProvider{
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type schemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type completionRequest struct {
	Model          string              `json:"model"`
	Messages       []completionMessage `json:"messages"`
	Temperature    int                 `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens"`
	ResponseFormat struct {
		Type       string       `json:"type"`
		JSONSchema schemaFormat `json:"json_schema"`
	} `json:"response_format"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (p *OpenAIProvider) newRequest(prompt string) completionRequest {
	req := completionRequest{
		Model: p.model,
		Messages: []completionMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 200,
	}
	req.ResponseFormat.Type = "json_schema"
	req.ResponseFormat.JSONSchema = schemaFormat{Name: verdictSchemaName, Strict: true, Schema: verdictSchema}
	return req
}

// Complete implements LLMProvider. Non-200 answers come back as
// *model.HTTPError carrying any Retry-After hint.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	raw, err := p.post(ctx, p.newRequest(prompt))
	if err != nil {
		return "", err
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	switch {
	case out.Error != nil:
		return "", fmt.Errorf("llm: %s: %s", out.Error.Type, out.Error.Message)
	case len(out.Choices) == 0:
		return "", errors.New("llm: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) post(ctx context.Context, payload completionRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("llm: %s", extract.Truncate(string(raw), 200)),
		}
	}
	return raw, nil
}
