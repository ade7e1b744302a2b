// Package llm adapts the OpenAI chat completions API to the ModelClient
// contract: a first exchange that may request tool calls, and a finalize
// exchange that turns dispatched results into the final reply.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/careline/clinic-agent/agent/contract"
)

type Client struct {
	api   openaisdk.Client
	model string
	cfg   Config
}

var _ contractx.ModelClient = (*Client)(nil)

// NewClient builds the model collaborator, or nil when no API key is
// configured so the caller can fall back to rule-based mode.
func NewClient(cfg Config) *Client {
	if !cfg.Enabled() {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")))
	}

	return &Client{
		api:   openaisdk.NewClient(opts...),
		model: strings.TrimSpace(cfg.Model),
		cfg:   cfg,
	}
}

// Exchange runs the first pass: the model either answers directly or
// requests tool calls. The returned turn's State carries the transcript the
// second pass needs and must be handed back to Finalize untouched.
func (c *Client) Exchange(ctx context.Context, req contractx.ExchangeRequest) (*contractx.ModelTurn, error) {
	messages := buildMessages(req)

	params := openaisdk.ChatCompletionNewParams{
		Model:               openaisdk.ChatModel(c.model),
		Messages:            messages,
		Temperature:         openaisdk.Float(c.cfg.Temperature),
		MaxCompletionTokens: openaisdk.Int(int64(c.cfg.MaxCompletionToken)),
	}
	if tools := convertTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", contractx.ErrModelInvoke)
	}

	msg := resp.Choices[0].Message
	turn := &contractx.ModelTurn{
		Text:  strings.TrimSpace(msg.Content),
		State: append(messages, msg.ToParam()),
	}
	for _, tc := range msg.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, contractx.ModelToolCall{
			ID:      tc.ID,
			Name:    tc.Function.Name,
			RawArgs: tc.Function.Arguments,
		})
	}
	return turn, nil
}

// Finalize runs the second pass: tool results go back to the model, which
// produces the final user-facing reply.
func (c *Client) Finalize(ctx context.Context, turn *contractx.ModelTurn, results []contractx.ToolOutcome) (string, error) {
	messages, ok := turn.State.([]openaisdk.ChatCompletionMessageParamUnion)
	if !ok || len(messages) == 0 {
		return "", fmt.Errorf("%w: missing exchange state", contractx.ErrModelInvoke)
	}
	for _, res := range results {
		messages = append(messages, openaisdk.ToolMessage(res.Payload, res.CallID))
	}

	resp, err := c.api.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:               openaisdk.ChatModel(c.model),
		Messages:            messages,
		Temperature:         openaisdk.Float(c.cfg.Temperature),
		MaxCompletionTokens: openaisdk.Int(int64(c.cfg.MaxCompletionToken)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", contractx.ErrModelInvoke)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildMessages(req contractx.ExchangeRequest) []openaisdk.ChatCompletionMessageParamUnion {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openaisdk.SystemMessage(req.System))
	}
	for _, turn := range req.History {
		switch turn.Role {
		case contractx.TurnAssistant:
			messages = append(messages, openaisdk.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openaisdk.UserMessage(turn.Content))
		}
	}
	return append(messages, openaisdk.UserMessage(req.Message))
}

func convertTools(schemas []contractx.ToolSchema) []openaisdk.ChatCompletionToolParam {
	tools := make([]openaisdk.ChatCompletionToolParam, 0, len(schemas))
	for _, schema := range schemas {
		tools = append(tools, openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        schema.Name,
				Description: openaisdk.String(schema.Description),
				Parameters:  convertParams(schema.Params),
			},
		})
	}
	return tools
}

func convertParams(params map[string]contractx.ParamSpec) openaisdk.FunctionParameters {
	properties := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for name, spec := range params {
		prop := map[string]any{"type": spec.Type}
		if spec.Description != "" {
			prop["description"] = spec.Description
		}
		properties[name] = prop
		if spec.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	schema := openaisdk.FunctionParameters{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
