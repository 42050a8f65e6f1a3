package chat

import (
	"context"
	"encoding/json"
	"time"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// InvocationState tracks the lifecycle of a tool invocation. An invocation is
// created in the call state and transitions to result exactly once.
type InvocationState string

const (
	InvocationStateCall   InvocationState = "call"
	InvocationStateResult InvocationState = "result"
)

// ToolInvocation records a single tool call requested by the model and,
// once available, its result.
type ToolInvocation struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	State      InvocationState `json:"state"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// Attachment references an uploaded file included with a user message.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
}

// Message is one entry in a transcript. Ordering is insertion order and is
// significant: conversation order is causal order.
type Message struct {
	ID              string           `json:"id,omitempty"`
	Role            Role             `json:"role"`
	Content         string           `json:"content"`
	ToolCallID      string           `json:"toolCallId,omitempty"`
	ToolInvocations []ToolInvocation `json:"toolInvocations,omitempty"`
	Attachments     []Attachment     `json:"experimental_attachments,omitempty"`
	CreatedAt       time.Time        `json:"created_at,omitempty"`
}

// HasContent reports whether the message carries anything worth sending to
// the model: text, tool activity, or attachments.
func (m Message) HasContent() bool {
	return m.Content != "" || len(m.ToolInvocations) > 0 || len(m.Attachments) > 0
}

// Chat is a persisted conversation owned by a single user.
type Chat struct {
	ID        uint      `json:"-"`
	PublicID  string    `json:"id"`
	UserID    string    `json:"-"`
	Title     *string   `json:"title,omitempty"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatFilter selects chats in repository queries.
type ChatFilter struct {
	ID       *uint
	PublicID *string
	UserID   *string
}

// Repository persists chats. The datastore is the serialization point for
// concurrent turns on the same conversation.
type Repository interface {
	Create(ctx context.Context, chat *Chat) error
	FindByPublicID(ctx context.Context, publicID string) (*Chat, error)
	FindByFilter(ctx context.Context, filter ChatFilter) ([]*Chat, error)
	Update(ctx context.Context, chat *Chat) error
	Delete(ctx context.Context, id uint) error
}
