// internal/services/issuance_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/apperrors"
	"github.com/panelforge/panelforge-backend/internal/models"
	"github.com/panelforge/panelforge-backend/internal/utils"
)

// IssuanceService drives the go-live transition and the mint flow. Minting
// holds the episode lock for the whole operation: the supply increment,
// revenue split, and settlement commit or roll back together, and only the
// minter call happens after the money has moved.
type IssuanceService struct {
	db            *gorm.DB
	revenue       *RevenueService
	settlement    Settlement
	minter        Minter
	notifications *NotificationService
	locks         *EntityLocks
}

func NewIssuanceService(db *gorm.DB, revenue *RevenueService, settlement Settlement, minter Minter, notifications *NotificationService, locks *EntityLocks) *IssuanceService {
	return &IssuanceService{
		db:            db,
		revenue:       revenue,
		settlement:    settlement,
		minter:        minter,
		notifications: notifications,
		locks:         locks,
	}
}

// GoLive flips an episode to live. One-way: there is no way back, and the
// minting rules freeze at this point. The minter announcement runs in the
// background; a failed announcement does not undo the transition.
func (s *IssuanceService) GoLive(ctx context.Context, episodeID int64, creatorID uuid.UUID) (*models.Episode, error) {
	unlock := s.locks.Lock(episodeLockKey(episodeID))
	defer unlock()

	var episode models.Episode
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&episode, episodeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.CodeNotFound, "episode %d not found", episodeID)
			}
			return fmt.Errorf("failed to load episode: %w", err)
		}
		if episode.CreatorID != creatorID {
			return apperrors.New(apperrors.CodeForbidden, "only the episode creator may take it live")
		}
		if episode.Live {
			return apperrors.New(apperrors.CodeAlreadyLive, "episode is already live")
		}
		if episode.MintPrice <= 0 {
			return apperrors.New(apperrors.CodePriceNotSet, "set a mint price before going live")
		}

		return tx.Model(&episode).Update("live", true).Error
	})
	if err != nil {
		return nil, err
	}

	go func(ep models.Episode) {
		if err := s.minter.AnnounceLive(context.Background(), &ep); err != nil {
			logrus.WithError(err).WithField("episode_id", ep.ID).Warn("go-live announcement failed")
		}
	}(episode)

	if s.notifications != nil {
		go s.notifications.NotifyEpisodeLive(&episode)
	}

	return &episode, nil
}

// Mint sells one copy of a live episode. The guarded supply increment
// re-checks the cap inside the transaction, so two racing buyers can never
// both take the last copy. Settlement failure rolls everything back; minter
// failure after commit is escalated to the reconciliation queue.
func (s *IssuanceService) Mint(ctx context.Context, episodeID int64, buyerID uuid.UUID) (*models.ComicToken, error) {
	unlock := s.locks.Lock(episodeLockKey(episodeID))
	defer unlock()

	var (
		episode models.Episode
		rules   models.MintingRules
		receipt *SettlementReceipt
		serial  int64
	)
	reference := uuid.NewString()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&episode, episodeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.CodeNotFound, "episode %d not found", episodeID)
			}
			return fmt.Errorf("failed to load episode: %w", err)
		}
		if !episode.Live {
			return apperrors.New(apperrors.CodeEpisodeNotLive, "episode is not live")
		}

		if err := tx.Where("episode_id = ?", episodeID).First(&rules).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.CodeNotFound, "minting rules for episode %d not found", episodeID)
			}
			return fmt.Errorf("failed to load minting rules: %w", err)
		}
		if !rules.AllowPublicMinting {
			return apperrors.New(apperrors.CodeMintingDisabled, "public minting is disabled for this episode")
		}
		if episode.MintPrice <= 0 {
			return apperrors.New(apperrors.CodePriceNotSet, "episode has no mint price")
		}

		res := tx.Model(&models.Episode{}).
			Where("id = ? AND current_supply < max_supply", episodeID).
			UpdateColumn("current_supply", gorm.Expr("current_supply + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to increment supply: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Newf(apperrors.CodeSupplyExceeded, "all %d copies are minted", episode.MaxSupply)
		}
		serial = episode.CurrentSupply + 1

		creatorAmount, platformAmount := SplitAmount(episode.MintPrice, rules.CreatorRewardBps)
		if err := s.revenue.Record(tx, &episode, episode.MintPrice, creatorAmount, platformAmount); err != nil {
			return err
		}

		r, err := s.settlement.Charge(ctx, buyerID, episode.MintPrice, reference)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeSettlementFailed, "mint payment failed", err)
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := s.minter.Issue(ctx, buyerID, &episode, serial, receipt.Reference)
	if err != nil {
		s.escalateIssuanceFailure(&episode, buyerID, receipt, err)
		return nil, apperrors.Wrap(apperrors.CodeMintFailed, "payment captured but token issuance failed", err)
	}

	if s.notifications != nil {
		go s.notifications.NotifyMint(&episode, token)
	}

	return token, nil
}

// escalateIssuanceFailure records a captured payment without a token. The
// supply slot and the booked revenue stay committed; the queue entry is the
// operator's handle for refund-or-reissue.
func (s *IssuanceService) escalateIssuanceFailure(episode *models.Episode, buyerID uuid.UUID, receipt *SettlementReceipt, cause error) {
	entry := &models.ReconciliationEntry{
		EpisodeID:        episode.ID,
		BuyerID:          buyerID,
		Amount:           receipt.Amount,
		PaymentReference: receipt.Reference,
		FailureReason:    cause.Error(),
	}
	if err := s.db.Create(entry).Error; err != nil {
		logrus.WithError(err).Error("failed to persist reconciliation entry")
	}

	logrus.WithError(cause).WithFields(logrus.Fields{
		"episode_id":        episode.ID,
		"buyer_id":          buyerID,
		"amount":            receipt.Amount,
		"payment_reference": receipt.Reference,
		"reconciliation_id": entry.ID,
	}).Error("token issuance failed after settlement, manual reconciliation required")
}

// ListTokens returns the tokens owned by a user, newest first.
func (s *IssuanceService) ListTokens(ownerID uuid.UUID, params utils.PaginationParams) ([]models.ComicToken, int64, error) {
	query := s.db.Model(&models.ComicToken{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tokens: %w", err)
	}

	var tokens []models.ComicToken
	if err := utils.ApplyPagination(query.Order("id DESC"), params).
		Preload("Episode").Find(&tokens).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tokens: %w", err)
	}

	return tokens, total, nil
}

// ListReconciliationEntries returns unresolved entries for the operator
// dashboard.
func (s *IssuanceService) ListReconciliationEntries(params utils.PaginationParams) ([]models.ReconciliationEntry, int64, error) {
	query := s.db.Model(&models.ReconciliationEntry{}).Where("resolved = ?", false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reconciliation entries: %w", err)
	}

	var entries []models.ReconciliationEntry
	if err := utils.ApplyPagination(query.Order("created_at ASC"), params).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reconciliation entries: %w", err)
	}

	return entries, total, nil
}

// ResolveReconciliationEntry marks an entry handled after the operator has
// refunded or reissued out of band.
func (s *IssuanceService) ResolveReconciliationEntry(entryID int64) error {
	res := s.db.Model(&models.ReconciliationEntry{}).
		Where("id = ? AND resolved = ?", entryID, false).
		Update("resolved", true)
	if res.Error != nil {
		return fmt.Errorf("failed to resolve reconciliation entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "unresolved reconciliation entry %d not found", entryID)
	}
	return nil
}
