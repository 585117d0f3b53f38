// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model for uuid-keyed records
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// Enums
type UserType string

const (
	UserTypeCreator UserType = "creator"
	UserTypeReader  UserType = "reader"
	UserTypeAdmin   UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type EarningsScope string

const (
	EarningsScopeCreator EarningsScope = "creator"
	EarningsScopeProject EarningsScope = "project"
	EarningsScopeEpisode EarningsScope = "episode"
)

type NotificationType string

const (
	NotificationTypeEpisodeLive NotificationType = "episode_live"
	NotificationTypeMint        NotificationType = "mint"
	NotificationTypeSale        NotificationType = "sale"
	NotificationTypeWithdrawal  NotificationType = "withdrawal"
)

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator = 10000
