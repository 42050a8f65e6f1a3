package filerepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"docchat-server/internal/domain/upload"
	"docchat-server/internal/infrastructure/database/entities"
	"docchat-server/internal/utils/platformerrors"
)

// Repository handles upload metadata persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ upload.Repository = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, obj *upload.FileObject) error {
	entity := entities.FileObject{
		ID:              obj.ID,
		UserID:          obj.UserID,
		Pathname:        obj.Pathname,
		StorageProvider: obj.StorageProvider,
		StorageKey:      obj.StorageKey,
		ContentType:     obj.ContentType,
		Bytes:           obj.Bytes,
		SHA256:          obj.SHA256,
	}
	err := r.db.WithContext(ctx).Create(&entity).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create file object",
			err,
			"a4c82e97-5b13-4f68-90ad-c7e2d5b8f031",
		)
	}
	obj.CreatedAt = entity.CreatedAt
	obj.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindByIDAndUserID returns one owned file object. Absent records surface as
// gorm.ErrRecordNotFound for the domain layer to classify.
func (r *Repository) FindByIDAndUserID(ctx context.Context, id, userID string) (*upload.FileObject, error) {
	var record entities.FileObject
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find file object",
			err,
			"3e6b8f14-d027-4c95-8a1e-6f40b2c9d583",
		)
	}
	return mapEntity(&record), nil
}

func (r *Repository) ListByUserID(ctx context.Context, userID string) ([]*upload.FileObject, error) {
	var records []entities.FileObject
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list file objects",
			err,
			"d7f30c58-91e4-4a26-b8c5-30a9f6e14d72",
		)
	}

	objects := make([]*upload.FileObject, 0, len(records))
	for i := range records {
		objects = append(objects, mapEntity(&records[i]))
	}
	return objects, nil
}

func mapEntity(record *entities.FileObject) *upload.FileObject {
	return &upload.FileObject{
		ID:              record.ID,
		UserID:          record.UserID,
		Pathname:        record.Pathname,
		StorageProvider: record.StorageProvider,
		StorageKey:      record.StorageKey,
		ContentType:     record.ContentType,
		Bytes:           record.Bytes,
		SHA256:          record.SHA256,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}
