// internal/services/rules_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/apperrors"
	"github.com/panelforge/panelforge-backend/internal/models"
	"github.com/panelforge/panelforge-backend/internal/utils"
)

// RulesService manages episode economics. Rules are writable until the
// episode goes live and frozen afterwards; the episode row mirrors the
// price/supply/read fields so readers never need the join. Writes hold the
// episode lock so a concurrent go-live cannot slip between the frozen
// check and the commit.
type RulesService struct {
	db    *gorm.DB
	locks *EntityLocks
}

func NewRulesService(db *gorm.DB, locks *EntityLocks) *RulesService {
	return &RulesService{db: db, locks: locks}
}

type SetMintingRulesRequest struct {
	MintPrice          int64 `json:"mint_price" validate:"min=0"`
	MaxSupply          int64 `json:"max_supply" validate:"required,gt=0"`
	CreatorRewardBps   int64 `json:"creator_reward_bps" validate:"min=0,max=10000"`
	PlatformFeeBps     int64 `json:"platform_fee_bps" validate:"min=0,max=10000"`
	AllowPublicMinting bool  `json:"allow_public_minting"`
	PayPerRead         bool  `json:"pay_per_read"`
	ReadPrice          int64 `json:"read_price" validate:"min=0"`
}

func (s *RulesService) SetMintingRules(episodeID int64, creatorID uuid.UUID, req *SetMintingRulesRequest) (*models.MintingRules, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid minting rules", err)
	}
	if req.CreatorRewardBps+req.PlatformFeeBps > models.BpsDenominator {
		return nil, apperrors.Newf(apperrors.CodeInvalidPercentages,
			"creator reward and platform fee sum to %d bps, limit is %d",
			req.CreatorRewardBps+req.PlatformFeeBps, models.BpsDenominator)
	}
	if req.PayPerRead && req.ReadPrice <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "pay-per-read requires a positive read price")
	}

	unlock := s.locks.Lock(episodeLockKey(episodeID))
	defer unlock()

	var rules models.MintingRules
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var episode models.Episode
		if err := tx.First(&episode, episodeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.CodeNotFound, "episode %d not found", episodeID)
			}
			return fmt.Errorf("failed to load episode: %w", err)
		}
		if episode.CreatorID != creatorID {
			return apperrors.New(apperrors.CodeForbidden, "only the episode creator may set minting rules")
		}
		if episode.Live {
			return apperrors.New(apperrors.CodeAlreadyLive, "minting rules are frozen once the episode is live")
		}

		if err := tx.Where("episode_id = ?", episodeID).First(&rules).Error; err != nil {
			return fmt.Errorf("failed to load minting rules: %w", err)
		}

		rules.MintPrice = req.MintPrice
		rules.MaxSupply = req.MaxSupply
		rules.CreatorRewardBps = req.CreatorRewardBps
		rules.PlatformFeeBps = req.PlatformFeeBps
		rules.AllowPublicMinting = req.AllowPublicMinting
		rules.PayPerRead = req.PayPerRead
		rules.ReadPrice = req.ReadPrice
		if err := tx.Save(&rules).Error; err != nil {
			return fmt.Errorf("failed to save minting rules: %w", err)
		}

		// Keep the episode mirror in sync.
		if err := tx.Model(&models.Episode{}).
			Where("id = ?", episodeID).
			Updates(map[string]interface{}{
				"mint_price":   req.MintPrice,
				"max_supply":   req.MaxSupply,
				"pay_per_read": req.PayPerRead,
				"read_price":   req.ReadPrice,
			}).Error; err != nil {
			return fmt.Errorf("failed to mirror rules to episode: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &rules, nil
}

func (s *RulesService) GetMintingRules(episodeID int64) (*models.MintingRules, error) {
	var rules models.MintingRules
	err := s.db.Where("episode_id = ?", episodeID).First(&rules).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "minting rules for episode %d not found", episodeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load minting rules: %w", err)
	}
	return &rules, nil
}
