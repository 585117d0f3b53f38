// internal/services/settlement_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/transfer"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/apperrors"
	"github.com/panelforge/panelforge-backend/internal/config"
	"github.com/panelforge/panelforge-backend/internal/models"
)

type SettlementReceipt struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

// Settlement moves real money. Charge debits a user for a mint or a paid
// read; Pay disburses a withdrawal. Both are synchronous: an error means no
// value moved and the caller must roll back whatever bookkeeping it staged.
type Settlement interface {
	Charge(ctx context.Context, payerID uuid.UUID, amount int64, reference string) (*SettlementReceipt, error)
	Pay(ctx context.Context, payeeID uuid.UUID, amount int64, reference string) (*SettlementReceipt, error)
}

// StripeSettlement charges buyers through PaymentIntents and pays creators
// through Transfers to their connected accounts. Stripe account ids live in
// the user's profile data (stripe_customer_id / stripe_account_id).
type StripeSettlement struct {
	db     *gorm.DB
	config *config.Config
}

func NewStripeSettlement(db *gorm.DB, cfg *config.Config) *StripeSettlement {
	stripe.Key = cfg.Payment.StripeSecretKey
	return &StripeSettlement{db: db, config: cfg}
}

func (s *StripeSettlement) Charge(ctx context.Context, payerID uuid.UUID, amount int64, reference string) (*SettlementReceipt, error) {
	customerID, err := s.profileKey(payerID, "stripe_customer_id")
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(s.config.Payment.Currency),
		Customer:      stripe.String(customerID),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		Description:   stripe.String("panelforge purchase " + reference),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
	}
	params.Context = ctx
	params.AddMetadata("payer_id", payerID.String())
	params.AddMetadata("reference", reference)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSettlementFailed, "stripe charge failed", err)
	}

	return &SettlementReceipt{Reference: intent.ID, Amount: amount}, nil
}

func (s *StripeSettlement) Pay(ctx context.Context, payeeID uuid.UUID, amount int64, reference string) (*SettlementReceipt, error) {
	accountID, err := s.profileKey(payeeID, "stripe_account_id")
	if err != nil {
		return nil, err
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(s.config.Payment.Currency),
		Destination: stripe.String(accountID),
	}
	params.Context = ctx
	params.AddMetadata("payee_id", payeeID.String())
	params.AddMetadata("reference", reference)

	t, err := transfer.New(params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSettlementFailed, "stripe payout failed", err)
	}

	return &SettlementReceipt{Reference: t.ID, Amount: amount}, nil
}

func (s *StripeSettlement) profileKey(userID uuid.UUID, key string) (string, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return "", fmt.Errorf("failed to load user for settlement: %w", err)
	}

	if user.ProfileData != nil {
		if v, ok := user.ProfileData[key].(string); ok && v != "" {
			return v, nil
		}
	}

	return "", apperrors.Newf(apperrors.CodeSettlementFailed, "user %s has no %s on file", userID, key)
}
