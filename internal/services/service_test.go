// internal/services/service_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/panelforge/panelforge-backend/internal/config"
	"github.com/panelforge/panelforge-backend/internal/database"
	"github.com/panelforge/panelforge-backend/internal/models"
	"github.com/panelforge/panelforge-backend/internal/utils"
)

func paginationDefaults() utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and serializes
	// concurrent test transactions.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Payment: config.PaymentConfig{
			Currency:                "usd",
			PlatformFeeBps:          1000,
			DefaultCreatorRewardBps: 9000,
			DefaultPlatformFeeBps:   1000,
		},
	}
}

func createTestUser(t *testing.T, db *gorm.DB, userType models.UserType) *models.User {
	t.Helper()

	user := &models.User{
		Username: fmt.Sprintf("user_%s", uuid.NewString()[:8]),
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		UserType: userType,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("TestPass123!"))
	require.NoError(t, db.Create(user).Error)
	return user
}

type recordedTransfer struct {
	UserID uuid.UUID
	Amount int64
}

// fakeSettlement records every transfer and can be told to fail.
type fakeSettlement struct {
	mu         sync.Mutex
	charges    []recordedTransfer
	payouts    []recordedTransfer
	failCharge bool
	failPay    bool
}

func (f *fakeSettlement) Charge(ctx context.Context, payerID uuid.UUID, amount int64, reference string) (*SettlementReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCharge {
		return nil, errors.New("card declined")
	}
	f.charges = append(f.charges, recordedTransfer{UserID: payerID, Amount: amount})
	return &SettlementReceipt{Reference: "ch_" + reference, Amount: amount}, nil
}

func (f *fakeSettlement) Pay(ctx context.Context, payeeID uuid.UUID, amount int64, reference string) (*SettlementReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPay {
		return nil, errors.New("transfer rejected")
	}
	f.payouts = append(f.payouts, recordedTransfer{UserID: payeeID, Amount: amount})
	return &SettlementReceipt{Reference: "tr_" + reference, Amount: amount}, nil
}

func (f *fakeSettlement) chargeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.charges)
}

func (f *fakeSettlement) payoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payouts)
}

// failingMinter accepts announcements but refuses to issue tokens.
type failingMinter struct{}

func (failingMinter) AnnounceLive(ctx context.Context, episode *models.Episode) error {
	return nil
}

func (failingMinter) Issue(ctx context.Context, ownerID uuid.UUID, episode *models.Episode, serialNumber int64, paymentReference string) (*models.ComicToken, error) {
	return nil, errors.New("issuance backend unavailable")
}
