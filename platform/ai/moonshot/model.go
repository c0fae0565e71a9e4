// Package moonshot adapts the Moonshot (Kimi) chat completion API to the
// ADK model.LLM interface so agents can run against it.
package moonshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Config holds Kimi connection settings.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	DisableThinking bool
}

// KimiModel implements model.LLM against Moonshot's OpenAI-compatible
// chat completion endpoint.
type KimiModel struct {
	config Config
	client *http.Client
}

// NewModel creates a KimiModel with defaults filled in.
func NewModel(cfg Config) *KimiModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.moonshot.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "kimi-k2-turbo-preview"
	}
	return &KimiModel{
		config: cfg,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (m *KimiModel) Name() string {
	return m.config.Model
}

// GenerateContent satisfies model.LLM. Streaming is not supported; the
// sequence yields exactly one response.
func (m *KimiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.complete(ctx, req)
		yield(resp, err)
	}
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatToolDef struct {
	Type     string          `json:"type"`
	Function chatToolDefFunc `json:"function"`
}

type chatToolDefFunc struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error any `json:"error"`
}

func (m *KimiModel) complete(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	payload := map[string]any{
		"model":    m.config.Model,
		"messages": m.toMessages(req.Contents),
	}

	// kimi-k2.5 with thinking disabled pins the temperature server-side.
	if m.config.DisableThinking {
		payload["thinking"] = map[string]string{"type": "disabled"}
	} else if req.Config != nil && req.Config.Temperature != nil {
		payload["temperature"] = float64(*req.Config.Temperature)
	}

	if tools := m.toTools(req); len(tools) > 0 {
		payload["tools"] = tools
		payload["tool_choice"] = "auto"
	}

	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding kimi response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("kimi api error: %v", result.Error)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("kimi api error: empty choices")
	}

	choice := result.Choices[0].Message
	parts := make([]*genai.Part, 0, 1+len(choice.ToolCalls))
	if strings.TrimSpace(choice.Content) != "" {
		parts = append(parts, genai.NewPartFromText(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{"_raw": tc.Function.Arguments}
			}
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			},
		})
	}

	return &model.LLMResponse{
		Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: parts,
		},
	}, nil
}

func (m *KimiModel) toMessages(contents []*genai.Content) []chatMessage {
	messages := make([]chatMessage, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}

		role := "user"
		if content.Role == "model" {
			role = "assistant"
		}

		var toolCalls []chatToolCall
		var textParts []string
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			// Tool results become standalone "tool" role messages.
			if part.FunctionResponse != nil {
				payload, _ := json.Marshal(part.FunctionResponse.Response)
				messages = append(messages, chatMessage{
					Role:       "tool",
					ToolCallID: part.FunctionResponse.ID,
					Content:    string(payload),
					Name:       part.FunctionResponse.Name,
				})
				continue
			}
			if part.FunctionCall != nil {
				args, _ := json.Marshal(part.FunctionCall.Args)
				toolCalls = append(toolCalls, chatToolCall{
					ID:   part.FunctionCall.ID,
					Type: "function",
					Function: chatFunction{
						Name:      part.FunctionCall.Name,
						Arguments: string(args),
					},
				})
				continue
			}
			if strings.TrimSpace(part.Text) != "" {
				textParts = append(textParts, part.Text)
			}
		}

		text := strings.TrimSpace(strings.Join(textParts, "\n"))
		if text != "" || len(toolCalls) > 0 {
			messages = append(messages, chatMessage{
				Role:      role,
				Content:   text,
				ToolCalls: toolCalls,
			})
		}
	}
	return messages
}

func (m *KimiModel) toTools(req *model.LLMRequest) []chatToolDef {
	if req == nil || req.Config == nil || len(req.Config.Tools) == 0 {
		return nil
	}

	var tools []chatToolDef
	for _, gt := range req.Config.Tools {
		if gt == nil || gt.FunctionDeclarations == nil {
			continue
		}
		for _, decl := range gt.FunctionDeclarations {
			if decl == nil || decl.Name == "" {
				continue
			}
			var params any
			switch {
			case decl.ParametersJsonSchema != nil:
				params = decl.ParametersJsonSchema
			case decl.Parameters != nil:
				params = decl.Parameters
			}
			tools = append(tools, chatToolDef{
				Type: "function",
				Function: chatToolDefFunc{
					Name:        decl.Name,
					Description: decl.Description,
					Parameters:  params,
				},
			})
		}
	}

	return tools
}
