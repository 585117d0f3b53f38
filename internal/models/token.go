// internal/models/token.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ComicToken is one issued copy of an episode. The primary key doubles as
// the token id: a single global sequence shared by every episode. The
// serial number is the per-episode mint position.
type ComicToken struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	EpisodeID        int64     `json:"episode_id" gorm:"not null;index"`
	OwnerID          uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	SerialNumber     int64     `json:"serial_number" gorm:"not null"`
	ContentHash      string    `json:"content_hash" gorm:"size:66;not null"`
	PaymentReference string    `json:"payment_reference" gorm:"size:255"`
	CreatedAt        time.Time `json:"created_at"`

	// Relationships
	Episode Episode `json:"episode,omitempty" gorm:"foreignKey:EpisodeID"`
}
