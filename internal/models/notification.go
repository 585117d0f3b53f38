// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type CreatorNotification struct {
	BaseModel
	UserID    uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;index"`
	Type      NotificationType `json:"type" gorm:"type:varchar(30);not null;index"`
	Title     string           `json:"title" gorm:"size:255;not null"`
	Message   string           `json:"message" gorm:"type:text;not null"`
	Data      JSONB            `json:"data" gorm:"type:jsonb"`
	ReadAt    *time.Time       `json:"read_at"`
}
