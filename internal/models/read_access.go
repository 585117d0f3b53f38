// internal/models/read_access.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ReadAccessRecord marks that a user has paid the pay-per-read price for an
// episode. Presence is the permission; rows are created once and never
// deleted. Read counts live on the Episode, not here.
type ReadAccessRecord struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	EpisodeID        int64     `json:"episode_id" gorm:"not null;uniqueIndex:idx_read_access"`
	UserID           uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_read_access"`
	PaymentReference string    `json:"payment_reference" gorm:"size:255"`
	CreatedAt        time.Time `json:"created_at"`
}
