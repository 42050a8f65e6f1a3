package entities

import "time"

// FileObject represents persisted upload metadata.
type FileObject struct {
	ID              string    `gorm:"type:varchar(40);primaryKey"`
	UserID          string    `gorm:"type:varchar(64);index;not null"`
	Pathname        string    `gorm:"type:varchar(255);not null"`
	StorageProvider string    `gorm:"type:varchar(32);not null"`
	StorageKey      string    `gorm:"type:varchar(255);not null"`
	ContentType     string    `gorm:"type:varchar(64);not null"`
	Bytes           int64     `gorm:"not null"`
	SHA256          string    `gorm:"type:varchar(64);not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (FileObject) TableName() string {
	return "file_objects"
}
