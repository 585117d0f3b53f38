// internal/models/project.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ComicProject is a creator-owned series container. Projects are never
// deleted; retiring one flips Active instead.
type ComicProject struct {
	ID            int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatorID     uuid.UUID      `json:"creator_id" gorm:"type:uuid;not null;index"`
	Title         string         `json:"title" gorm:"size:255;not null"`
	Description   string         `json:"description" gorm:"type:text;not null"`
	Genres        pq.StringArray `json:"genres" gorm:"type:text[];not null"`
	Active        bool           `json:"active" gorm:"default:true"`
	EpisodeCount  int64          `json:"episode_count" gorm:"default:0"`
	TotalEarnings int64          `json:"total_earnings" gorm:"default:0"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	// Relationships
	Creator  User      `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Episodes []Episode `json:"episodes,omitempty" gorm:"foreignKey:ProjectID"`
}
