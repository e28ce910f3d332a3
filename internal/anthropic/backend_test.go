package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calprompt/internal/interpret"
	"github.com/teemow/calprompt/internal/tools/date_tools"
)

type fakeMessages struct {
	params []sdk.MessageNewParams
	reply  *sdk.Message
	err    error
}

func (f *fakeMessages) New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	f.params = append(f.params, body)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func TestNewBackend_Defaults(t *testing.T) {
	b := newBackend(&fakeMessages{}, Config{})
	assert.Equal(t, DefaultModel, b.Model())
	assert.Equal(t, int64(DefaultMaxTokens), b.maxTokens)

	b = newBackend(&fakeMessages{}, Config{Model: "custom", MaxTokens: 100})
	assert.Equal(t, "custom", b.Model())
	assert.Equal(t, int64(100), b.maxTokens)
}

func TestComplete_Request(t *testing.T) {
	fake := &fakeMessages{reply: &sdk.Message{
		StopReason: sdk.StopReasonEndTurn,
		Content:    []sdk.ContentBlockUnion{{Type: "text", Text: "{}"}},
	}}
	b := newBackend(fake, Config{Model: "m", MaxTokens: 512})

	req := interpret.Request{
		System: "be precise",
		Tools:  date_tools.NewCatalogue().Tools(),
		Messages: []interpret.Message{
			{Role: interpret.RoleUser, Text: "second friday"},
			{Role: interpret.RoleAssistant, Text: "checking", ToolCalls: []interpret.ToolCall{
				{ID: "call-1", Name: date_tools.ToolDayOfWeek, Arguments: map[string]any{"date": "2026-01-09"}},
			}},
			{Role: interpret.RoleUser, ToolResults: []interpret.ToolResult{
				{CallID: "call-1", Content: `{"success":true}`},
			}},
		},
	}

	turn, err := b.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, interpret.StopFinal, turn.Stop)
	assert.Equal(t, "{}", turn.Text)

	require.Len(t, fake.params, 1)
	p := fake.params[0]
	assert.Equal(t, sdk.Model("m"), p.Model)
	assert.Equal(t, int64(512), p.MaxTokens)
	require.Len(t, p.System, 1)
	assert.Equal(t, "be precise", p.System[0].Text)

	require.Len(t, p.Tools, 6)
	require.NotNil(t, p.Tools[0].OfTool)
	assert.Equal(t, date_tools.ToolNthWeekdayOfMonth, p.Tools[0].OfTool.Name)
	assert.NotEmpty(t, p.Tools[0].OfTool.InputSchema.Required)

	require.Len(t, p.Messages, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, p.Messages[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, p.Messages[1].Role)
	require.Len(t, p.Messages[1].Content, 2)
	require.NotNil(t, p.Messages[1].Content[1].OfToolUse)
	assert.Equal(t, "call-1", p.Messages[1].Content[1].OfToolUse.ID)
	require.Len(t, p.Messages[2].Content, 1)
	require.NotNil(t, p.Messages[2].Content[0].OfToolResult)
	assert.Equal(t, "call-1", p.Messages[2].Content[0].OfToolResult.ToolUseID)
}

func TestComplete_Errors(t *testing.T) {
	boom := errors.New("overloaded")
	b := newBackend(&fakeMessages{err: boom}, Config{})
	_, err := b.Complete(context.Background(), interpret.Request{
		Messages: []interpret.Message{{Role: interpret.RoleUser, Text: "hi"}},
	})
	assert.ErrorIs(t, err, boom)

	fake := &fakeMessages{}
	b = newBackend(fake, Config{})
	_, err = b.Complete(context.Background(), interpret.Request{
		Messages: []interpret.Message{{Role: interpret.RoleUser}},
	})
	assert.ErrorContains(t, err, "no content")
	assert.Empty(t, fake.params)

	_, err = b.Complete(context.Background(), interpret.Request{
		Messages: []interpret.Message{{Role: "system", Text: "x"}},
	})
	assert.ErrorContains(t, err, "unknown role")
}

func TestStopReason(t *testing.T) {
	tests := []struct {
		in   sdk.StopReason
		want interpret.StopReason
	}{
		{in: sdk.StopReasonEndTurn, want: interpret.StopFinal},
		{in: sdk.StopReasonStopSequence, want: interpret.StopFinal},
		{in: sdk.StopReasonMaxTokens, want: interpret.StopTruncated},
		{in: sdk.StopReasonToolUse, want: interpret.StopToolUse},
		{in: sdk.StopReason("refusal"), want: interpret.StopOther},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, stopReason(tt.in))
		})
	}
}

func TestTurnFromMessage_ToolUse(t *testing.T) {
	msg := &sdk.Message{
		StopReason: sdk.StopReasonToolUse,
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "Let me check."},
			{Type: "tool_use", ID: "c1", Name: date_tools.ToolNthWeekdayOfMonth, Input: json.RawMessage(`{"year":2026,"month":1,"weekday":"vendredi","nth":2}`)},
			{Type: "tool_use", ID: "c2", Name: date_tools.ToolMondayOfWeek},
		},
	}

	turn, err := turnFromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, interpret.StopToolUse, turn.Stop)
	assert.Equal(t, "tool_use", turn.Raw)
	assert.Equal(t, "Let me check.", turn.Text)

	require.Len(t, turn.ToolCalls, 2)
	assert.Equal(t, "c1", turn.ToolCalls[0].ID)
	assert.Equal(t, float64(2026), turn.ToolCalls[0].Arguments["year"])
	assert.Equal(t, "vendredi", turn.ToolCalls[0].Arguments["weekday"])
	assert.Equal(t, map[string]any{}, turn.ToolCalls[1].Arguments)

	_, err = turnFromMessage(&sdk.Message{Content: []sdk.ContentBlockUnion{
		{Type: "tool_use", ID: "bad", Input: json.RawMessage(`[1,2]`)},
	}})
	assert.ErrorContains(t, err, "invalid input")
}
