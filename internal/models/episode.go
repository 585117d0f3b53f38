// internal/models/episode.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Episode ids come from a single global sequence, independent of project
// numbering. MintPrice/MaxSupply/ReadPrice/PayPerRead mirror the episode's
// MintingRules row for fast reads; the rules row is authoritative until the
// one-way Live transition freezes it.
//
// Invariants: CurrentSupply <= MaxSupply at all times; Live never flips back
// to false.
type Episode struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID        int64     `json:"project_id" gorm:"not null;index"`
	CreatorID        uuid.UUID `json:"creator_id" gorm:"type:uuid;not null;index"`
	Title            string    `json:"title" gorm:"size:255;not null"`
	Description      string    `json:"description" gorm:"type:text;not null"`
	ContentReference string    `json:"content_reference" gorm:"size:512;not null"`
	MintPrice        int64     `json:"mint_price" gorm:"not null;default:0"`
	MaxSupply        int64     `json:"max_supply" gorm:"not null"`
	CurrentSupply    int64     `json:"current_supply" gorm:"not null;default:0"`
	Live             bool      `json:"live" gorm:"default:false"`
	PayPerRead       bool      `json:"pay_per_read" gorm:"default:false"`
	ReadPrice        int64     `json:"read_price" gorm:"not null;default:0"`
	TotalReads       int64     `json:"total_reads" gorm:"not null;default:0"`
	TotalEarnings    int64     `json:"total_earnings" gorm:"not null;default:0"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Relationships
	Project ComicProject  `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Rules   *MintingRules `json:"rules,omitempty" gorm:"foreignKey:EpisodeID"`
}

// MintingRules is the 1:1 economics record for an episode. Read-only once
// the episode is live.
type MintingRules struct {
	ID                 int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	EpisodeID          int64     `json:"episode_id" gorm:"not null;uniqueIndex"`
	MintPrice          int64     `json:"mint_price" gorm:"not null;default:0"`
	MaxSupply          int64     `json:"max_supply" gorm:"not null"`
	CreatorRewardBps   int64     `json:"creator_reward_bps" gorm:"not null"`
	PlatformFeeBps     int64     `json:"platform_fee_bps" gorm:"not null"`
	AllowPublicMinting bool      `json:"allow_public_minting" gorm:"default:true"`
	PayPerRead         bool      `json:"pay_per_read" gorm:"default:false"`
	ReadPrice          int64     `json:"read_price" gorm:"not null;default:0"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
