package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"docchat-server/internal/domain/chat"
)

// JSONMessages stores the full transcript as a jsonb column.
type JSONMessages []chat.Message

func (m JSONMessages) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *JSONMessages) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSONMessages")
	}

	return json.Unmarshal(data, m)
}

// ChatRecord represents a persisted conversation.
type ChatRecord struct {
	ID        uint         `gorm:"primaryKey"`
	PublicID  string       `gorm:"type:varchar(40);uniqueIndex;not null"`
	UserID    string       `gorm:"type:varchar(64);index;not null"`
	Title     *string      `gorm:"type:varchar(255)"`
	Messages  JSONMessages `gorm:"type:jsonb;not null"`
	CreatedAt time.Time    `gorm:"autoCreateTime"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime"`
}

func (ChatRecord) TableName() string {
	return "chats"
}
