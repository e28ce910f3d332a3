package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calprompt/internal/interpret"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultMaxTokens bounds the length of one answer.
	DefaultMaxTokens = 8192
)

// messageCreator is the part of the SDK message service the backend uses.
type messageCreator interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Backend implements interpret.Backend over the Messages API.
type Backend struct {
	messages  messageCreator
	model     string
	maxTokens int64
}

// Config configures a Backend.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL overrides the API endpoint, mostly for proxies.
	BaseURL string
}

// New creates a Backend. The API key falls back to ANTHROPIC_API_KEY in the
// environment, as the SDK does.
func New(cfg Config) *Backend {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := sdk.NewClient(opts...)
	return newBackend(&client.Messages, cfg)
}

func newBackend(messages messageCreator, cfg Config) *Backend {
	b := &Backend{
		messages:  messages,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
	}
	if b.model == "" {
		b.model = DefaultModel
	}
	if b.maxTokens <= 0 {
		b.maxTokens = DefaultMaxTokens
	}
	return b
}

// Model returns the configured model name.
func (b *Backend) Model() string {
	return b.model
}

// Complete sends one round trip.
func (b *Backend) Complete(ctx context.Context, req interpret.Request) (interpret.Turn, error) {
	params, err := b.params(req)
	if err != nil {
		return interpret.Turn{}, err
	}
	msg, err := b.messages.New(ctx, params)
	if err != nil {
		return interpret.Turn{}, fmt.Errorf("anthropic: messages request failed: %w", err)
	}
	return turnFromMessage(msg)
}

func (b *Backend) params(req interpret.Request) (sdk.MessageNewParams, error) {
	messages, err := toMessageParams(req.Messages)
	if err != nil {
		return sdk.MessageNewParams{}, err
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(b.model),
		MaxTokens: b.maxTokens,
		Messages:  messages,
		Tools:     toToolParams(req.Tools),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	return params, nil
}

// toToolParams declares mcp tools with their JSON input schemas.
func toToolParams(tools []mcp.Tool) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		tool := &sdk.ToolParam{
			Name: t.Name,
			InputSchema: sdk.ToolInputSchemaParam{
				Properties: t.InputSchema.Properties,
				Required:   t.InputSchema.Required,
			},
		}
		if t.Description != "" {
			tool.Description = sdk.String(t.Description)
		}
		out = append(out, sdk.ToolUnionParam{OfTool: tool})
	}
	return out
}

func toMessageParams(messages []interpret.Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(messages))
	for i, m := range messages {
		var blocks []sdk.ContentBlockParamUnion
		if m.Text != "" {
			blocks = append(blocks, sdk.NewTextBlock(m.Text))
		}
		for _, call := range m.ToolCalls {
			args := call.Arguments
			if args == nil {
				args = map[string]any{}
			}
			blocks = append(blocks, sdk.NewToolUseBlock(call.ID, args, call.Name))
		}
		for _, res := range m.ToolResults {
			blocks = append(blocks, sdk.NewToolResultBlock(res.CallID, res.Content, res.IsError))
		}
		if len(blocks) == 0 {
			return nil, fmt.Errorf("anthropic: message %d has no content", i)
		}

		switch m.Role {
		case interpret.RoleUser:
			out = append(out, sdk.NewUserMessage(blocks...))
		case interpret.RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("anthropic: message %d has unknown role %q", i, m.Role)
		}
	}
	return out, nil
}

func stopReason(r sdk.StopReason) interpret.StopReason {
	switch r {
	case sdk.StopReasonEndTurn, sdk.StopReasonStopSequence:
		return interpret.StopFinal
	case sdk.StopReasonMaxTokens:
		return interpret.StopTruncated
	case sdk.StopReasonToolUse:
		return interpret.StopToolUse
	default:
		return interpret.StopOther
	}
}

func turnFromMessage(msg *sdk.Message) (interpret.Turn, error) {
	turn := interpret.Turn{
		Stop: stopReason(msg.StopReason),
		Raw:  string(msg.StopReason),
	}

	var text []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "tool_use":
			call, err := toolCall(block)
			if err != nil {
				return interpret.Turn{}, err
			}
			turn.ToolCalls = append(turn.ToolCalls, call)
		}
	}
	turn.Text = strings.Join(text, "\n")
	return turn, nil
}

func toolCall(block sdk.ContentBlockUnion) (interpret.ToolCall, error) {
	call := interpret.ToolCall{ID: block.ID, Name: block.Name, Arguments: map[string]any{}}
	if len(block.Input) == 0 {
		return call, nil
	}
	if err := json.Unmarshal(block.Input, &call.Arguments); err != nil {
		return interpret.ToolCall{}, fmt.Errorf("anthropic: invalid input for tool call %s: %w", block.ID, err)
	}
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}
	return call, nil
}
