package chatrepo

import (
	"context"

	"gorm.io/gorm"

	"docchat-server/internal/domain/chat"
	"docchat-server/internal/infrastructure/database/entities"
	"docchat-server/internal/utils/platformerrors"
)

// Repository handles chat persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ chat.Repository = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, c *chat.Chat) error {
	entity := mapDomain(c)
	err := r.db.WithContext(ctx).Create(&entity).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create chat",
			err,
			"3b82f6a1-9d04-4c57-8e2f-71da5c40b9e6",
		)
	}
	c.ID = entity.ID
	return nil
}

func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*chat.Chat, error) {
	var entity entities.ChatRecord
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find chat by public id",
			err,
			"c590de14-72b8-4a6d-9f03-e8a1b6c42d57",
		)
	}
	result := mapEntity(entity)
	return &result, nil
}

func (r *Repository) FindByFilter(ctx context.Context, filter chat.ChatFilter) ([]*chat.Chat, error) {
	query := r.db.WithContext(ctx).Model(&entities.ChatRecord{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.PublicID != nil {
		query = query.Where("public_id = ?", *filter.PublicID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	var records []entities.ChatRecord
	err := query.Order("created_at DESC").Find(&records).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list chats",
			err,
			"8e47c2b9-1f60-4d3a-a5c8-94b7d0e61f25",
		)
	}

	chats := make([]*chat.Chat, 0, len(records))
	for _, record := range records {
		c := mapEntity(record)
		chats = append(chats, &c)
	}
	return chats, nil
}

func (r *Repository) Update(ctx context.Context, c *chat.Chat) error {
	entity := mapDomain(c)
	err := r.db.WithContext(ctx).Model(&entities.ChatRecord{}).
		Where("id = ?", entity.ID).
		Updates(map[string]any{
			"title":      entity.Title,
			"messages":   entity.Messages,
			"updated_at": entity.UpdatedAt,
		}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update chat",
			err,
			"f1d93a60-5e72-4b18-bc4d-07a9e83c5f14",
		)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Delete(&entities.ChatRecord{}, id).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete chat",
			err,
			"60b2d8f7-34ac-4e91-8d5f-b6c1e729a048",
		)
	}
	return nil
}

func mapEntity(entity entities.ChatRecord) chat.Chat {
	return chat.Chat{
		ID:        entity.ID,
		PublicID:  entity.PublicID,
		UserID:    entity.UserID,
		Title:     entity.Title,
		Messages:  []chat.Message(entity.Messages),
		CreatedAt: entity.CreatedAt,
		UpdatedAt: entity.UpdatedAt,
	}
}

func mapDomain(c *chat.Chat) entities.ChatRecord {
	return entities.ChatRecord{
		ID:        c.ID,
		PublicID:  c.PublicID,
		UserID:    c.UserID,
		Title:     c.Title,
		Messages:  entities.JSONMessages(c.Messages),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
