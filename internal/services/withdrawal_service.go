// internal/services/withdrawal_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/apperrors"
	"github.com/panelforge/panelforge-backend/internal/config"
	"github.com/panelforge/panelforge-backend/internal/models"
)

// WithdrawalService pays out accumulated balances. Creator withdrawals
// draw down the creator-scope aggregate only; the project and episode rows
// keep their full history. Platform withdrawals draw down the singleton
// ledger and are restricted to operators.
type WithdrawalService struct {
	db            *gorm.DB
	config        *config.Config
	settlement    Settlement
	notifications *NotificationService
	locks         *EntityLocks
}

func NewWithdrawalService(db *gorm.DB, cfg *config.Config, settlement Settlement, notifications *NotificationService, locks *EntityLocks) *WithdrawalService {
	return &WithdrawalService{
		db:            db,
		config:        cfg,
		settlement:    settlement,
		notifications: notifications,
		locks:         locks,
	}
}

type WithdrawRequest struct {
	// Amount withdraws a partial balance; nil withdraws everything.
	Amount *int64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

// WithdrawCreatorEarnings pays out up to the creator's withdrawable
// balance. The payout failure path rolls back the balance decrement, so a
// failed transfer never loses earnings.
func (s *WithdrawalService) WithdrawCreatorEarnings(ctx context.Context, creatorID uuid.UUID, amount *int64) (int64, error) {
	unlock := s.locks.Lock(creatorLockKey(creatorID))
	defer unlock()

	var withdrawn int64
	reference := uuid.NewString()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var aggregate models.EarningsAggregate
		err := tx.Where("scope_type = ? AND scope_key = ?", models.EarningsScopeCreator, creatorScopeKey(creatorID)).
			First(&aggregate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNothingToWithdraw, "no withdrawable balance")
		}
		if err != nil {
			return fmt.Errorf("failed to load creator earnings: %w", err)
		}
		if aggregate.CreatorEarnings <= 0 {
			return apperrors.New(apperrors.CodeNothingToWithdraw, "no withdrawable balance")
		}

		withdrawn = aggregate.CreatorEarnings
		if amount != nil {
			if *amount <= 0 {
				return apperrors.New(apperrors.CodeInvalidInput, "withdrawal amount must be positive")
			}
			if *amount > aggregate.CreatorEarnings {
				return apperrors.Newf(apperrors.CodeInsufficientBalance,
					"requested %d but only %d is withdrawable", *amount, aggregate.CreatorEarnings)
			}
			withdrawn = *amount
		}
		if withdrawn < s.config.Payment.MinimumPayout {
			return apperrors.Newf(apperrors.CodeInvalidInput,
				"minimum payout is %d, requested %d", s.config.Payment.MinimumPayout, withdrawn)
		}

		now := time.Now()
		res := tx.Model(&models.EarningsAggregate{}).
			Where("id = ? AND creator_earnings >= ?", aggregate.ID, withdrawn).
			Updates(map[string]interface{}{
				"creator_earnings":   gorm.Expr("creator_earnings - ?", withdrawn),
				"last_withdrawal_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to debit creator earnings: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.New(apperrors.CodeInsufficientBalance, "balance changed during withdrawal")
		}

		if _, err := s.settlement.Pay(ctx, creatorID, withdrawn, reference); err != nil {
			return apperrors.Wrap(apperrors.CodeSettlementFailed, "payout failed", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.notifications != nil {
		go s.notifications.NotifyWithdrawal(creatorID, withdrawn)
	}

	return withdrawn, nil
}

// WithdrawPlatformFees pays accumulated platform fees to an operator
// account. TotalCollected is untouched, it is the all-time sum.
func (s *WithdrawalService) WithdrawPlatformFees(ctx context.Context, operatorID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "withdrawal amount must be positive")
	}

	unlock := s.locks.Lock(platformLockKey)
	defer unlock()

	reference := uuid.NewString()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var operator models.User
		if err := tx.First(&operator, "id = ?", operatorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeForbidden, "operator account not found")
			}
			return fmt.Errorf("failed to load operator: %w", err)
		}
		if operator.UserType != models.UserTypeAdmin {
			return apperrors.New(apperrors.CodeForbidden, "platform fees can only be withdrawn by an operator")
		}

		var ledger models.PlatformLedger
		if err := tx.First(&ledger, models.PlatformLedgerID).Error; err != nil {
			return fmt.Errorf("failed to load platform ledger: %w", err)
		}

		res := tx.Model(&models.PlatformLedger{}).
			Where("id = ? AND platform_fees >= ?", models.PlatformLedgerID, amount).
			UpdateColumn("platform_fees", gorm.Expr("platform_fees - ?", amount))
		if res.Error != nil {
			return fmt.Errorf("failed to debit platform ledger: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Newf(apperrors.CodeInsufficientBalance,
				"requested %d but only %d is available", amount, ledger.PlatformFees)
		}

		if _, err := s.settlement.Pay(ctx, operatorID, amount, reference); err != nil {
			return apperrors.Wrap(apperrors.CodeSettlementFailed, "payout failed", err)
		}
		return nil
	})
}
