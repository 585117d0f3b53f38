// internal/services/read_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/apperrors"
	"github.com/panelforge/panelforge-backend/internal/models"
)

// ReadService serves episode reads. Free episodes just count; pay-per-read
// episodes charge once per reader and remember the purchase forever. Every
// read attempt that reaches a live episode bumps the counters, including
// repeat attempts by readers who already paid.
type ReadService struct {
	db         *gorm.DB
	revenue    *RevenueService
	settlement Settlement
	locks      *EntityLocks

	mu         sync.Mutex
	readCounts map[int64]int64
}

func NewReadService(db *gorm.DB, revenue *RevenueService, settlement Settlement, locks *EntityLocks) *ReadService {
	return &ReadService{
		db:         db,
		revenue:    revenue,
		settlement: settlement,
		locks:      locks,
		readCounts: make(map[int64]int64),
	}
}

// ReadComic grants one read of a live episode. For a pay-per-read episode
// the first read charges the reader and writes the access record in the
// same transaction as the revenue split; later reads return AlreadyPaid but
// still count.
func (s *ReadService) ReadComic(ctx context.Context, episodeID int64, readerID uuid.UUID) (*models.Episode, error) {
	unlock := s.locks.Lock(episodeLockKey(episodeID))
	defer unlock()

	var episode models.Episode
	if err := s.db.First(&episode, episodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "episode %d not found", episodeID)
		}
		return nil, fmt.Errorf("failed to load episode: %w", err)
	}
	if !episode.Live {
		return nil, apperrors.New(apperrors.CodeEpisodeNotLive, "episode is not live")
	}

	if !episode.PayPerRead || episode.ReadPrice <= 0 {
		if err := s.bumpReadCount(s.db, episodeID); err != nil {
			return nil, err
		}
		return &episode, nil
	}

	var existing models.ReadAccessRecord
	err := s.db.Where("episode_id = ? AND user_id = ?", episodeID, readerID).First(&existing).Error
	if err == nil {
		if err := s.bumpReadCount(s.db, episodeID); err != nil {
			return nil, err
		}
		return nil, apperrors.New(apperrors.CodeAlreadyPaid, "read access already purchased")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check read access: %w", err)
	}

	reference := uuid.NewString()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		creatorAmount, platformAmount := SplitAmount(episode.ReadPrice, s.revenue.ReadCreatorBps())
		if err := s.revenue.Record(tx, &episode, episode.ReadPrice, creatorAmount, platformAmount); err != nil {
			return err
		}

		receipt, err := s.settlement.Charge(ctx, readerID, episode.ReadPrice, reference)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeSettlementFailed, "read payment failed", err)
		}

		record := &models.ReadAccessRecord{
			EpisodeID:        episodeID,
			UserID:           readerID,
			PaymentReference: receipt.Reference,
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create read access record: %w", err)
		}

		return s.bumpReadCount(tx, episodeID)
	})
	if err != nil {
		return nil, err
	}

	return &episode, nil
}

// HasReadAccess reports whether a user may read the episode without paying
// again. Free episodes are always accessible.
func (s *ReadService) HasReadAccess(episodeID int64, userID uuid.UUID) (bool, error) {
	var episode models.Episode
	if err := s.db.First(&episode, episodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperrors.Newf(apperrors.CodeNotFound, "episode %d not found", episodeID)
		}
		return false, fmt.Errorf("failed to load episode: %w", err)
	}
	if !episode.PayPerRead || episode.ReadPrice <= 0 {
		return true, nil
	}

	var count int64
	if err := s.db.Model(&models.ReadAccessRecord{}).
		Where("episode_id = ? AND user_id = ?", episodeID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check read access: %w", err)
	}
	return count > 0, nil
}

// ReadCount returns the in-process read counter for an episode. The
// persistent total_reads column survives restarts; this counter is the
// cheap per-process view.
func (s *ReadService) ReadCount(episodeID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCounts[episodeID]
}

func (s *ReadService) bumpReadCount(tx *gorm.DB, episodeID int64) error {
	if err := tx.Model(&models.Episode{}).
		Where("id = ?", episodeID).
		UpdateColumn("total_reads", gorm.Expr("total_reads + 1")).Error; err != nil {
		return fmt.Errorf("failed to update read count: %w", err)
	}

	s.mu.Lock()
	s.readCounts[episodeID]++
	s.mu.Unlock()
	return nil
}
