package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

const (
	deepSeekBaseURL    = "https://api.deepseek.com/v1"
	deepSeekDefault    = "deepseek-chat"
	zhipuBaseURL       = "https://open.bigmodel.cn/api/paas/v4"
	zhipuDefaultModel  = "glm-4-plus"
)

// OpenAICompatibleProvider implements agent.ModelPortal against any chat
// completion API that speaks the OpenAI wire format: the generic gateway
// case, plus the DeepSeek and Zhipu/BigModel variants configured purely by
// base URL and default model id.
type OpenAICompatibleProvider struct {
	BaseProvider
	client       *openai.Client
	defaultModel string
}

// NewOpenAICompatibleProvider builds a provider against an arbitrary
// OpenAI-compatible gateway. baseURL may be empty to use OpenAI's own
// endpoint.
func NewOpenAICompatibleProvider(name, apiKey, baseURL, defaultModel string) *OpenAICompatibleProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompatibleProvider{
		BaseProvider: NewBaseProvider(name, 3, 0),
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
	}
}

// NewDeepSeekProvider builds a provider bound to DeepSeek's OpenAI-compatible
// endpoint. Auth uses "Authorization: Bearer {apiKey}" via the underlying
// client, matching DeepSeek's published API.
func NewDeepSeekProvider(apiKey string) *OpenAICompatibleProvider {
	return NewOpenAICompatibleProvider("deepseek", apiKey, deepSeekBaseURL, deepSeekDefault)
}

// NewZhipuProvider builds a provider bound to Zhipu's (BigModel) OpenAI-
// compatible endpoint.
func NewZhipuProvider(apiKey string) *OpenAICompatibleProvider {
	return NewOpenAICompatibleProvider("zhipu", apiKey, zhipuBaseURL, zhipuDefaultModel)
}

// CreateSession records the model id, system prompt and tool manifest for a
// session. OpenAI-compatible chat completions are stateless per request, so
// no network call happens here; the binding is replayed on every Invoke.
func (p *OpenAICompatibleProvider) CreateSession(ctx context.Context, cfg agent.SessionConfig) (models.AgentBinding, error) {
	modelID := cfg.ModelID
	if modelID == "" || modelID == "fast" || modelID == "default" {
		modelID = p.defaultModel
	}
	return models.AgentBinding{
		ModelID:      modelID,
		SystemPrompt: cfg.SystemPrompt,
		AllowedTools: cfg.AllowedTools,
		ToolManifest: cfg.ToolManifest,
	}, nil
}

// Invoke sends the full history as a chat completion stream request and
// translates deltas into agent.Frame values on the returned channel. Tool
// calls are accumulated across chunks and emitted complete on the frame
// that finishes them, matching the OpenAI streaming tool-call protocol.
func (p *OpenAICompatibleProvider) Invoke(ctx context.Context, binding models.AgentBinding, history []models.Message) (<-chan agent.Frame, error) {
	if p.client == nil {
		return nil, errors.New("provider not configured: missing API key")
	}

	messages, err := toOpenAIMessages(binding.SystemPrompt, history)
	if err != nil {
		return nil, fmt.Errorf("convert history: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:    binding.ModelID,
		Messages: messages,
		Stream:   true,
	}
	if tools := toOpenAITools(binding.ToolManifest); len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	var stream *openai.ChatCompletionStream
	retryErr := p.Retry(ctx, isRetryableOpenAIError, func() error {
		var serr error
		stream, serr = p.client.CreateChatCompletionStream(ctx, req)
		return serr
	})
	if retryErr != nil {
		return nil, fmt.Errorf("create chat completion stream: %w", retryErr)
	}

	frames := make(chan agent.Frame)
	go streamFrames(ctx, stream, frames)
	return frames, nil
}

func streamFrames(ctx context.Context, stream *openai.ChatCompletionStream, out chan<- agent.Frame) {
	defer close(out)
	defer stream.Close()

	toolCalls := make(map[int]*models.ToolCall)
	assembled := ""

	for {
		select {
		case <-ctx.Done():
			out <- agent.Frame{Err: ctx.Err()}
			return
		default:
		}

		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			out <- finalFrame(assembled, toolCalls)
			return
		}
		if err != nil {
			out <- agent.Frame{Err: err}
			return
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]

		if choice.Delta.Content != "" {
			assembled += choice.Delta.Content
			out <- agent.Frame{AssistantContent: assembled}
		}

		for _, tc := range choice.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			existing, ok := toolCalls[idx]
			if !ok {
				existing = &models.ToolCall{ID: tc.ID, Name: tc.Function.Name}
				toolCalls[idx] = existing
			}
			if tc.Function.Name != "" {
				existing.Name = tc.Function.Name
			}
			existing.Input = append(existing.Input, []byte(tc.Function.Arguments)...)
		}

		if choice.FinishReason != "" {
			out <- finalFrame(assembled, toolCalls)
			return
		}
	}
}

func finalFrame(assembled string, toolCalls map[int]*models.ToolCall) agent.Frame {
	calls := make([]models.ToolCall, 0, len(toolCalls))
	for i := 0; i < len(toolCalls); i++ {
		if tc, ok := toolCalls[i]; ok {
			calls = append(calls, *tc)
		}
	}
	return agent.Frame{AssistantContent: assembled, ToolCalls: calls, FinishReason: "stop"}
}

func toOpenAIMessages(systemPrompt string, history []models.Message) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		switch m.Role {
		case models.RoleSystem:
			// already represented by systemPrompt; skip duplicates from history.
			continue
		case models.RoleUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case models.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Input),
					},
				})
			}
			out = append(out, msg)
		case models.RoleTool:
			if m.ToolResult == nil {
				continue
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.ToolResult.Content,
				ToolCallID: m.ToolResult.ToolCallID,
			})
		default:
			return nil, fmt.Errorf("unknown message role %q", m.Role)
		}
	}
	return out, nil
}

// toOpenAITools translates the core's tool manifest — computed once per
// session per §9's capability-filtering rule — into the OpenAI function
// tool-call wire format. The provider trusts the manifest it was given; it
// never re-derives or re-checks the allowlist itself.
func toOpenAITools(manifest []models.ToolManifestEntry) []openai.Tool {
	if len(manifest) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(manifest))
	for _, entry := range manifest {
		var params any
		if len(entry.Schema) > 0 {
			params = json.RawMessage(entry.Schema)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        entry.Name,
				Description: entry.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

func isRetryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return true
}
