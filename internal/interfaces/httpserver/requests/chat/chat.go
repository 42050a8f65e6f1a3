package chat

import (
	domain "docchat-server/internal/domain/chat"
)

// ChatRequest is the body of a chat turn posted by the browser client. ID is
// the client-generated conversation id; Messages is the full history
// including the newest user message.
type ChatRequest struct {
	ID       string           `json:"id" binding:"required"`
	Messages []domain.Message `json:"messages" binding:"required"`
}
