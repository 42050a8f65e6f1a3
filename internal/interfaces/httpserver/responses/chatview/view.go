package chatview

import (
	"encoding/json"

	"docchat-server/internal/domain/chat"
	"docchat-server/internal/domain/docqa"
)

// ViewKind selects the widget the browser renders for a tool result.
type ViewKind string

const (
	KindDocumentSummary   ViewKind = "documentSummary"
	KindDocumentAnswer    ViewKind = "documentAnswer"
	KindRelatedQuestions  ViewKind = "relatedQuestions"
	KindDocumentReference ViewKind = "documentReference"
	KindGenericJSON       ViewKind = "genericJson"
)

// viewKinds maps tool names to their dedicated widgets. Tools without an
// entry fall back to the generic JSON view.
var viewKinds = map[string]ViewKind{
	docqa.ToolGenerateDocumentSummary:          KindDocumentSummary,
	docqa.ToolGenerateDocumentAnswer:           KindDocumentAnswer,
	docqa.ToolGenerateDocumentRelatedQuestions: KindRelatedQuestions,
	docqa.ToolGenerateDocumentReference:        KindDocumentReference,
}

// ToolView is the render model for one tool invocation inside a bubble.
// Pending is true while the invocation has a call but no result yet.
type ToolView struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Kind       ViewKind        `json:"kind"`
	Pending    bool            `json:"pending"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// BubbleView is the render model for one message bubble.
type BubbleView struct {
	MessageID   string            `json:"messageId,omitempty"`
	Role        chat.Role         `json:"role"`
	Content     string            `json:"content,omitempty"`
	Attachments []chat.Attachment `json:"attachments,omitempty"`
	Tools       []ToolView        `json:"tools,omitempty"`
}

// Render converts a transcript into bubbles. It is pure: rendering the same
// transcript twice yields the same bubbles.
func Render(messages []chat.Message) []BubbleView {
	ui := chat.ToUIMessages(messages)

	bubbles := make([]BubbleView, 0, len(ui))
	for _, msg := range ui {
		bubble := BubbleView{
			MessageID:   msg.ID,
			Role:        msg.Role,
			Content:     msg.Content,
			Attachments: msg.Attachments,
		}
		for _, inv := range msg.ToolInvocations {
			bubble.Tools = append(bubble.Tools, renderTool(inv))
		}
		bubbles = append(bubbles, bubble)
	}
	return bubbles
}

func renderTool(inv chat.ToolInvocation) ToolView {
	kind, ok := viewKinds[inv.ToolName]
	if !ok {
		kind = KindGenericJSON
	}

	view := ToolView{
		ToolCallID: inv.ToolCallID,
		ToolName:   inv.ToolName,
		Kind:       kind,
	}

	if inv.State != chat.InvocationStateResult {
		view.Pending = true
		return view
	}

	view.Payload = inv.Result
	return view
}
