package chatview

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat-server/internal/domain/chat"
	"docchat-server/internal/domain/docqa"
)

func TestRenderToolKinds(t *testing.T) {
	tests := []struct {
		toolName string
		expected ViewKind
	}{
		{docqa.ToolGenerateDocumentSummary, KindDocumentSummary},
		{docqa.ToolGenerateDocumentAnswer, KindDocumentAnswer},
		{docqa.ToolGenerateDocumentRelatedQuestions, KindRelatedQuestions},
		{docqa.ToolGenerateDocumentReference, KindDocumentReference},
		{"someFutureTool", KindGenericJSON},
	}

	for _, tc := range tests {
		t.Run(tc.toolName, func(t *testing.T) {
			messages := []chat.Message{
				{
					Role: chat.RoleAssistant,
					ToolInvocations: []chat.ToolInvocation{
						{ToolCallID: "call_1", ToolName: tc.toolName, State: chat.InvocationStateResult, Result: json.RawMessage(`{}`)},
					},
				},
			}

			bubbles := Render(messages)
			require.Len(t, bubbles, 1)
			require.Len(t, bubbles[0].Tools, 1)
			assert.Equal(t, tc.expected, bubbles[0].Tools[0].Kind)
			assert.False(t, bubbles[0].Tools[0].Pending)
		})
	}
}

func TestRenderPendingInvocation(t *testing.T) {
	messages := []chat.Message{
		{
			Role: chat.RoleAssistant,
			ToolInvocations: []chat.ToolInvocation{
				{ToolCallID: "call_1", ToolName: docqa.ToolGenerateDocumentSummary, State: chat.InvocationStateCall},
			},
		},
	}

	bubbles := Render(messages)
	require.Len(t, bubbles, 1)
	tool := bubbles[0].Tools[0]
	assert.True(t, tool.Pending)
	assert.Nil(t, tool.Payload)
}

func TestRenderIsIdempotent(t *testing.T) {
	messages := []chat.Message{
		{Role: chat.RoleUser, Content: "Summarize the handbook"},
		{
			Role: chat.RoleAssistant,
			ToolInvocations: []chat.ToolInvocation{
				{ToolCallID: "call_1", ToolName: docqa.ToolGenerateDocumentSummary, State: chat.InvocationStateCall},
			},
		},
		{Role: chat.RoleTool, ToolCallID: "call_1", Content: `{"summary":"s"}`},
	}

	first := Render(messages)
	second := Render(messages)
	assert.Equal(t, first, second)
}

func TestRenderFoldsToolResultIntoBubble(t *testing.T) {
	messages := []chat.Message{
		{
			Role: chat.RoleAssistant,
			ToolInvocations: []chat.ToolInvocation{
				{ToolCallID: "call_1", ToolName: docqa.ToolGenerateDocumentAnswer, State: chat.InvocationStateCall},
			},
		},
		{Role: chat.RoleTool, ToolCallID: "call_1", Content: `{"answer":"June 1."}`},
	}

	bubbles := Render(messages)
	require.Len(t, bubbles, 1)
	tool := bubbles[0].Tools[0]
	assert.False(t, tool.Pending)
	assert.JSONEq(t, `{"answer":"June 1."}`, string(tool.Payload))
}
