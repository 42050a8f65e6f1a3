package chat

import "encoding/json"

// ToUIMessages converts a raw transcript into the shape the browser renders.
// Tool-role messages are folded into the preceding assistant message's
// matching invocation, moving it from the call state to the result state.
// Messages with no renderable content are dropped.
func ToUIMessages(messages []Message) []Message {
	out := make([]Message, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == RoleTool {
			foldToolResult(out, msg)
			continue
		}

		ui := Message{
			ID:          msg.ID,
			Role:        msg.Role,
			Content:     msg.Content,
			Attachments: msg.Attachments,
			CreatedAt:   msg.CreatedAt,
		}
		if len(msg.ToolInvocations) > 0 {
			ui.ToolInvocations = append([]ToolInvocation(nil), msg.ToolInvocations...)
		}
		if !ui.HasContent() {
			continue
		}
		out = append(out, ui)
	}

	return out
}

// foldToolResult attaches a tool-role message to the most recent assistant
// invocation with the same call ID that has not yet received a result.
// Results without a matching call are dropped.
func foldToolResult(messages []Message, result Message) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != RoleAssistant {
			continue
		}
		for j := range messages[i].ToolInvocations {
			inv := &messages[i].ToolInvocations[j]
			if inv.ToolCallID != result.ToolCallID || inv.State != InvocationStateCall {
				continue
			}
			inv.State = InvocationStateResult
			inv.Result = json.RawMessage(result.Content)
			return
		}
	}
}
