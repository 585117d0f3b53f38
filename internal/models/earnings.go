// internal/models/earnings.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// EarningsAggregate tracks gross revenue and the withdrawable creator
// balance at one of three granularities: creator identity, project, or
// episode. The three rows touched by a single minting/reading event are
// updated inside one transaction.
//
// Invariant: CreatorEarnings <= TotalEarnings.
type EarningsAggregate struct {
	ID               int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	ScopeType        EarningsScope `json:"scope_type" gorm:"type:varchar(20);not null;uniqueIndex:idx_earnings_scope"`
	ScopeKey         string        `json:"scope_key" gorm:"size:64;not null;uniqueIndex:idx_earnings_scope"`
	TotalEarnings    int64         `json:"total_earnings" gorm:"not null;default:0"`
	CreatorEarnings  int64         `json:"creator_earnings" gorm:"not null;default:0"`
	LastWithdrawalAt *time.Time    `json:"last_withdrawal_at"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// PlatformLedger is the single process-wide accumulator of platform fees.
// Exactly one row exists (seeded at migration time). PlatformFees is the
// current withdrawable balance; TotalCollected never decreases.
type PlatformLedger struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	PlatformFees   int64     `json:"platform_fees" gorm:"not null;default:0"`
	TotalCollected int64     `json:"total_collected" gorm:"not null;default:0"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PlatformLedgerID is the fixed primary key of the singleton ledger row.
const PlatformLedgerID int64 = 1

// ReconciliationEntry records the one non-recoverable mint edge: settlement
// captured the payment but the minter failed to issue the token. These rows
// are worked off manually.
type ReconciliationEntry struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	EpisodeID        int64     `json:"episode_id" gorm:"not null;index"`
	BuyerID          uuid.UUID `json:"buyer_id" gorm:"type:uuid;not null;index"`
	Amount           int64     `json:"amount" gorm:"not null"`
	PaymentReference string    `json:"payment_reference" gorm:"size:255;not null"`
	FailureReason    string    `json:"failure_reason" gorm:"type:text"`
	Resolved         bool      `json:"resolved" gorm:"default:false;index"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
