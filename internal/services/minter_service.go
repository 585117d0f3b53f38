// internal/services/minter_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/apperrors"
	"github.com/panelforge/panelforge-backend/internal/models"
	"github.com/panelforge/panelforge-backend/internal/utils"
)

// Minter is the issuance backend. AnnounceLive registers an episode when it
// goes live; Issue creates one numbered token for a completed purchase.
// Issue runs after settlement has committed, so a failure here leaves paid
// money without a token and is escalated to the reconciliation queue by the
// caller.
type Minter interface {
	AnnounceLive(ctx context.Context, episode *models.Episode) error
	Issue(ctx context.Context, ownerID uuid.UUID, episode *models.Episode, serialNumber int64, paymentReference string) (*models.ComicToken, error)
}

// LedgerMinter issues tokens as rows in the local database. The content
// hash binds each token to the episode pages it was sold against.
type LedgerMinter struct {
	db *gorm.DB
}

func NewLedgerMinter(db *gorm.DB) *LedgerMinter {
	return &LedgerMinter{db: db}
}

func (m *LedgerMinter) AnnounceLive(ctx context.Context, episode *models.Episode) error {
	logrus.WithFields(logrus.Fields{
		"episode_id": episode.ID,
		"project_id": episode.ProjectID,
		"max_supply": episode.MaxSupply,
		"mint_price": episode.MintPrice,
	}).Info("episode open for issuance")
	return nil
}

func (m *LedgerMinter) Issue(ctx context.Context, ownerID uuid.UUID, episode *models.Episode, serialNumber int64, paymentReference string) (*models.ComicToken, error) {
	token := &models.ComicToken{
		EpisodeID:        episode.ID,
		OwnerID:          ownerID,
		SerialNumber:     serialNumber,
		ContentHash:      "0x" + utils.HashString(fmt.Sprintf("%d:%s:%d", episode.ID, episode.ContentReference, serialNumber)),
		PaymentReference: paymentReference,
	}

	if err := m.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMintFailed, "token issuance failed", err)
	}

	return token, nil
}
