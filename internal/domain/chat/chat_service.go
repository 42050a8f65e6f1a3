package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"docchat-server/internal/utils/idgen"
	"docchat-server/internal/utils/platformerrors"
)

// ChatService handles business logic for chats.
type ChatService struct {
	repo Repository
}

// NewChatService creates a new chat service.
func NewChatService(repo Repository) *ChatService {
	return &ChatService{repo: repo}
}

// GetChatByPublicIDAndUserID retrieves a chat and validates ownership.
// A chat owned by someone else is reported as unauthorized, not leaked.
func (s *ChatService) GetChatByPublicIDAndUserID(ctx context.Context, publicID, userID string) (*Chat, error) {
	if strings.TrimSpace(publicID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "chat id is required", nil, "")
	}

	found, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "unauthorized", err, "")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load chat")
	}

	if found.UserID != userID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "unauthorized", nil, "")
	}

	return found, nil
}

// ListChatsByUserID returns the caller's chats, newest first.
func (s *ChatService) ListChatsByUserID(ctx context.Context, userID string) ([]*Chat, error) {
	chats, err := s.repo.FindByFilter(ctx, ChatFilter{UserID: &userID})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list chats")
	}
	return chats, nil
}

// SaveTranscript upserts the full transcript for a conversation. The chat is
// created on the first successful turn; later turns replace the stored
// message sequence with the extended one. The title is derived from the
// first meaningful user message and kept once set.
func (s *ChatService) SaveTranscript(ctx context.Context, publicID, userID string, messages []Message) (*Chat, error) {
	if strings.TrimSpace(publicID) == "" {
		generated, err := idgen.GenerateSecureID("chat", 16)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate chat ID")
		}
		publicID = generated
	}

	now := time.Now().UTC()
	for i := range messages {
		if messages[i].ID == "" {
			msgID, err := idgen.GenerateSecureID("msg", 16)
			if err != nil {
				return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate message ID")
			}
			messages[i].ID = msgID
		}
		if messages[i].CreatedAt.IsZero() {
			messages[i].CreatedAt = now
		}
	}

	existing, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load chat")
	}

	if existing == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		created := &Chat{
			PublicID:  publicID,
			UserID:    userID,
			Messages:  messages,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if title := DeriveTitle(created); title != "" {
			created.Title = &title
		}
		if err := s.repo.Create(ctx, created); err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create chat")
		}
		return created, nil
	}

	if existing.UserID != userID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "unauthorized", nil, "")
	}

	existing.Messages = messages
	existing.UpdatedAt = now
	if existing.Title == nil || *existing.Title == "" {
		if title := DeriveTitle(existing); title != "" {
			existing.Title = &title
		}
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update chat")
	}
	return existing, nil
}

// DeleteChatByID removes a chat after verifying ownership. A missing record
// and a non-owner caller look identical to the caller.
func (s *ChatService) DeleteChatByID(ctx context.Context, userID, publicID string) error {
	found, err := s.GetChatByPublicIDAndUserID(ctx, publicID, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, found.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete chat")
	}
	return nil
}
