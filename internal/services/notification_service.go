// internal/services/notification_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/models"
)

// NotificationService writes in-app notifications for creators. Failures
// are logged and swallowed, notifications never fail the operation that
// triggered them.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) NotifyEpisodeLive(episode *models.Episode) {
	s.create(&models.CreatorNotification{
		UserID:  episode.CreatorID,
		Type:    models.NotificationTypeEpisodeLive,
		Title:   "Episode is live",
		Message: fmt.Sprintf("%q is now open for minting and reading.", episode.Title),
		Data: models.JSONB{
			"episode_id": episode.ID,
			"project_id": episode.ProjectID,
		},
	})
}

func (s *NotificationService) NotifyMint(episode *models.Episode, token *models.ComicToken) {
	s.create(&models.CreatorNotification{
		UserID:  episode.CreatorID,
		Type:    models.NotificationTypeMint,
		Title:   "Copy sold",
		Message: fmt.Sprintf("Copy #%d of %q was minted.", token.SerialNumber, episode.Title),
		Data: models.JSONB{
			"episode_id":    episode.ID,
			"token_id":      token.ID,
			"serial_number": token.SerialNumber,
			"amount":        episode.MintPrice,
		},
	})
}

func (s *NotificationService) NotifyWithdrawal(userID uuid.UUID, amount int64) {
	s.create(&models.CreatorNotification{
		UserID:  userID,
		Type:    models.NotificationTypeWithdrawal,
		Title:   "Withdrawal sent",
		Message: fmt.Sprintf("Your withdrawal of %d was paid out.", amount),
		Data:    models.JSONB{"amount": amount},
	})
}

func (s *NotificationService) ListNotifications(userID uuid.UUID, limit int) ([]models.CreatorNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var notifications []models.CreatorNotification
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(notificationID, userID uuid.UUID) error {
	return s.db.Model(&models.CreatorNotification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (s *NotificationService) create(notification *models.CreatorNotification) {
	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": notification.UserID,
			"type":    notification.Type,
		}).Warn("failed to create notification")
	}
}
