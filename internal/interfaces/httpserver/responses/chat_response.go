package responses

import (
	"time"

	"docchat-server/internal/domain/chat"
	"docchat-server/internal/interfaces/httpserver/responses/chatview"
	"docchat-server/internal/utils/functional"
)

// ChatResponse is a single persisted conversation returned by the history and
// chat lookup endpoints. Bubbles carry the per-message render models the
// browser's message renderer consumes.
type ChatResponse struct {
	ID        string                `json:"id"`
	Title     *string               `json:"title,omitempty"`
	Messages  []chat.Message        `json:"messages"`
	Bubbles   []chatview.BubbleView `json:"bubbles,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// NewChatResponse converts a domain chat into its API shape. The transcript
// is converted to the renderable form the browser expects, plus the bubble
// view models the message renderer consumes directly.
func NewChatResponse(c *chat.Chat) ChatResponse {
	return ChatResponse{
		ID:        c.PublicID,
		Title:     c.Title,
		Messages:  chat.ToUIMessages(c.Messages),
		Bubbles:   chatview.Render(c.Messages),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NewHistoryResponse converts a list of chats for the history endpoint.
func NewHistoryResponse(chats []*chat.Chat) []ChatResponse {
	return functional.Map(chats, NewChatResponse)
}
