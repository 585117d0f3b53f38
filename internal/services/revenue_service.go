// internal/services/revenue_service.go
package services

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/config"
	"github.com/panelforge/panelforge-backend/internal/models"
)

// RevenueService applies revenue splits and maintains the earnings
// aggregates. Every event updates the creator, project, and episode rows
// plus the platform ledger inside the caller's transaction, so the books
// either all move or none do.
type RevenueService struct {
	db     *gorm.DB
	config *config.Config
}

func NewRevenueService(db *gorm.DB, cfg *config.Config) *RevenueService {
	return &RevenueService{db: db, config: cfg}
}

// SplitAmount divides a gross amount by the creator's share in basis
// points. The creator share rounds down and the platform takes the exact
// remainder, so creatorAmount+platformAmount == gross for every input.
func SplitAmount(gross, creatorRewardBps int64) (creatorAmount, platformAmount int64) {
	creatorAmount = gross * creatorRewardBps / models.BpsDenominator
	platformAmount = gross - creatorAmount
	return creatorAmount, platformAmount
}

// ReadCreatorBps is the creator share applied to pay-per-read revenue,
// derived from the flat platform fee.
func (s *RevenueService) ReadCreatorBps() int64 {
	return models.BpsDenominator - s.config.Payment.PlatformFeeBps
}

// Record books one revenue event against an episode: denormalized totals,
// the three earnings aggregates, and the platform ledger. Must be called
// inside the transaction that holds the rest of the operation.
func (s *RevenueService) Record(tx *gorm.DB, episode *models.Episode, gross, creatorAmount, platformAmount int64) error {
	if err := tx.Model(&models.Episode{}).
		Where("id = ?", episode.ID).
		UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", gross)).Error; err != nil {
		return fmt.Errorf("failed to update episode earnings: %w", err)
	}

	if err := tx.Model(&models.ComicProject{}).
		Where("id = ?", episode.ProjectID).
		UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", gross)).Error; err != nil {
		return fmt.Errorf("failed to update project earnings: %w", err)
	}

	scopes := []struct {
		scopeType models.EarningsScope
		scopeKey  string
	}{
		{models.EarningsScopeCreator, creatorScopeKey(episode.CreatorID)},
		{models.EarningsScopeProject, projectScopeKey(episode.ProjectID)},
		{models.EarningsScopeEpisode, episodeScopeKey(episode.ID)},
	}
	for _, scope := range scopes {
		if err := s.bumpAggregate(tx, scope.scopeType, scope.scopeKey, gross, creatorAmount); err != nil {
			return err
		}
	}

	if err := tx.Model(&models.PlatformLedger{}).
		Where("id = ?", models.PlatformLedgerID).
		UpdateColumns(map[string]interface{}{
			"platform_fees":   gorm.Expr("platform_fees + ?", platformAmount),
			"total_collected": gorm.Expr("total_collected + ?", platformAmount),
		}).Error; err != nil {
		return fmt.Errorf("failed to update platform ledger: %w", err)
	}

	return nil
}

func (s *RevenueService) bumpAggregate(tx *gorm.DB, scopeType models.EarningsScope, scopeKey string, gross, creatorAmount int64) error {
	res := tx.Model(&models.EarningsAggregate{}).
		Where("scope_type = ? AND scope_key = ?", scopeType, scopeKey).
		UpdateColumns(map[string]interface{}{
			"total_earnings":   gorm.Expr("total_earnings + ?", gross),
			"creator_earnings": gorm.Expr("creator_earnings + ?", creatorAmount),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update %s earnings: %w", scopeType, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	aggregate := &models.EarningsAggregate{
		ScopeType:       scopeType,
		ScopeKey:        scopeKey,
		TotalEarnings:   gross,
		CreatorEarnings: creatorAmount,
	}
	if err := tx.Create(aggregate).Error; err != nil {
		return fmt.Errorf("failed to create %s earnings row: %w", scopeType, err)
	}
	return nil
}

// CreatorEarnings returns the aggregate for a creator, zero-valued when the
// creator has never earned.
func (s *RevenueService) CreatorEarnings(creatorID uuid.UUID) (*models.EarningsAggregate, error) {
	return s.aggregate(models.EarningsScopeCreator, creatorScopeKey(creatorID))
}

func (s *RevenueService) ProjectEarnings(projectID int64) (*models.EarningsAggregate, error) {
	return s.aggregate(models.EarningsScopeProject, projectScopeKey(projectID))
}

func (s *RevenueService) EpisodeEarnings(episodeID int64) (*models.EarningsAggregate, error) {
	return s.aggregate(models.EarningsScopeEpisode, episodeScopeKey(episodeID))
}

func (s *RevenueService) aggregate(scopeType models.EarningsScope, scopeKey string) (*models.EarningsAggregate, error) {
	var aggregate models.EarningsAggregate
	err := s.db.Where("scope_type = ? AND scope_key = ?", scopeType, scopeKey).First(&aggregate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.EarningsAggregate{ScopeType: scopeType, ScopeKey: scopeKey}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s earnings: %w", scopeType, err)
	}
	return &aggregate, nil
}

// PlatformBalance returns the singleton platform ledger row.
func (s *RevenueService) PlatformBalance() (*models.PlatformLedger, error) {
	var ledger models.PlatformLedger
	if err := s.db.First(&ledger, models.PlatformLedgerID).Error; err != nil {
		return nil, fmt.Errorf("failed to load platform ledger: %w", err)
	}
	return &ledger, nil
}

func creatorScopeKey(creatorID uuid.UUID) string {
	return creatorID.String()
}

func projectScopeKey(projectID int64) string {
	return strconv.FormatInt(projectID, 10)
}

func episodeScopeKey(episodeID int64) string {
	return strconv.FormatInt(episodeID, 10)
}
