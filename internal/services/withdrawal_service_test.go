// internal/services/withdrawal_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/apperrors"
	"github.com/panelforge/panelforge-backend/internal/models"
)

type WithdrawalServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	catalog     *CatalogService
	rules       *RulesService
	revenue     *RevenueService
	settlement  *fakeSettlement
	issuance    *IssuanceService
	withdrawals *WithdrawalService
	creator     *models.User
	buyer       *models.User
	operator    *models.User
	project     *models.ComicProject
	episode     *models.Episode
}

func (s *WithdrawalServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	cfg := testConfig()
	locks := NewEntityLocks()
	s.settlement = &fakeSettlement{}
	s.catalog = NewCatalogService(s.db, cfg)
	s.rules = NewRulesService(s.db, locks)
	s.revenue = NewRevenueService(s.db, cfg)
	s.issuance = NewIssuanceService(s.db, s.revenue, s.settlement, NewLedgerMinter(s.db), nil, locks)
	s.withdrawals = NewWithdrawalService(s.db, cfg, s.settlement, nil, locks)
	s.creator = createTestUser(s.T(), s.db, models.UserTypeCreator)
	s.buyer = createTestUser(s.T(), s.db, models.UserTypeReader)
	s.operator = createTestUser(s.T(), s.db, models.UserTypeAdmin)

	var err error
	s.project, err = s.catalog.CreateProject(s.creator.ID, &CreateProjectRequest{
		Title:       "Starfall",
		Description: "A space western.",
		Genres:      []string{"sci-fi"},
	})
	s.Require().NoError(err)

	s.episode, err = s.catalog.CreateEpisode(s.project.ID, s.creator.ID, &CreateEpisodeRequest{
		Title:            "Episode",
		Description:      "pages",
		ContentReference: "ref",
		MintPrice:        100,
		MaxSupply:        10,
	})
	s.Require().NoError(err)

	_, err = s.rules.SetMintingRules(s.episode.ID, s.creator.ID, &SetMintingRulesRequest{
		MintPrice:          100,
		MaxSupply:          10,
		CreatorRewardBps:   8000,
		PlatformFeeBps:     1000,
		AllowPublicMinting: true,
	})
	s.Require().NoError(err)

	_, err = s.issuance.GoLive(context.Background(), s.episode.ID, s.creator.ID)
	s.Require().NoError(err)
}

// mintTimes funds the creator's balance: each mint at 100 with 8000 bps
// leaves the creator 80 and the platform 20.
func (s *WithdrawalServiceTestSuite) mintTimes(n int) {
	for i := 0; i < n; i++ {
		_, err := s.issuance.Mint(context.Background(), s.episode.ID, s.buyer.ID)
		s.Require().NoError(err)
	}
}

func (s *WithdrawalServiceTestSuite) TestWithdrawWithNoEarnings() {
	_, err := s.withdrawals.WithdrawCreatorEarnings(context.Background(), s.creator.ID, nil)
	s.True(apperrors.Is(err, apperrors.CodeNothingToWithdraw))
	s.Zero(s.settlement.payoutCount())
}

func (s *WithdrawalServiceTestSuite) TestFullWithdrawal() {
	s.mintTimes(2)

	withdrawn, err := s.withdrawals.WithdrawCreatorEarnings(context.Background(), s.creator.ID, nil)
	s.Require().NoError(err)
	s.Equal(int64(160), withdrawn)
	s.Equal(1, s.settlement.payoutCount())

	creatorAgg, err := s.revenue.CreatorEarnings(s.creator.ID)
	s.Require().NoError(err)
	s.Zero(creatorAgg.CreatorEarnings)
	s.Equal(int64(200), creatorAgg.TotalEarnings)
	s.NotNil(creatorAgg.LastWithdrawalAt)

	// Project and episode histories are untouched.
	projectAgg, err := s.revenue.ProjectEarnings(s.project.ID)
	s.Require().NoError(err)
	s.Equal(int64(160), projectAgg.CreatorEarnings)

	// A second withdrawal finds nothing.
	_, err = s.withdrawals.WithdrawCreatorEarnings(context.Background(), s.creator.ID, nil)
	s.True(apperrors.Is(err, apperrors.CodeNothingToWithdraw))
}

func (s *WithdrawalServiceTestSuite) TestPartialWithdrawal() {
	s.mintTimes(2)

	amount := int64(100)
	withdrawn, err := s.withdrawals.WithdrawCreatorEarnings(context.Background(), s.creator.ID, &amount)
	s.Require().NoError(err)
	s.Equal(int64(100), withdrawn)

	creatorAgg, err := s.revenue.CreatorEarnings(s.creator.ID)
	s.Require().NoError(err)
	s.Equal(int64(60), creatorAgg.CreatorEarnings)
}

func (s *WithdrawalServiceTestSuite) TestWithdrawalExceedingBalance() {
	s.mintTimes(1)

	amount := int64(500)
	_, err := s.withdrawals.WithdrawCreatorEarnings(context.Background(), s.creator.ID, &amount)
	s.True(apperrors.Is(err, apperrors.CodeInsufficientBalance))

	creatorAgg, err := s.revenue.CreatorEarnings(s.creator.ID)
	s.Require().NoError(err)
	s.Equal(int64(80), creatorAgg.CreatorEarnings)
}

func (s *WithdrawalServiceTestSuite) TestPayoutFailureRestoresBalance() {
	s.mintTimes(1)
	s.settlement.failPay = true

	_, err := s.withdrawals.WithdrawCreatorEarnings(context.Background(), s.creator.ID, nil)
	s.True(apperrors.Is(err, apperrors.CodeSettlementFailed))

	creatorAgg, err := s.revenue.CreatorEarnings(s.creator.ID)
	s.Require().NoError(err)
	s.Equal(int64(80), creatorAgg.CreatorEarnings)
}

func (s *WithdrawalServiceTestSuite) TestPlatformWithdrawalRequiresOperator() {
	s.mintTimes(2)

	err := s.withdrawals.WithdrawPlatformFees(context.Background(), s.creator.ID, 10)
	s.True(apperrors.Is(err, apperrors.CodeForbidden))
}

func (s *WithdrawalServiceTestSuite) TestPlatformWithdrawal() {
	s.mintTimes(2) // platform holds 40

	err := s.withdrawals.WithdrawPlatformFees(context.Background(), s.operator.ID, 30)
	s.Require().NoError(err)
	s.Equal(1, s.settlement.payoutCount())

	ledger, err := s.revenue.PlatformBalance()
	s.Require().NoError(err)
	s.Equal(int64(10), ledger.PlatformFees)
	s.Equal(int64(40), ledger.TotalCollected)

	err = s.withdrawals.WithdrawPlatformFees(context.Background(), s.operator.ID, 30)
	s.True(apperrors.Is(err, apperrors.CodeInsufficientBalance))
}

func (s *WithdrawalServiceTestSuite) TestPlatformWithdrawalWithEmptyLedger() {
	err := s.withdrawals.WithdrawPlatformFees(context.Background(), s.operator.ID, 10)
	s.True(apperrors.Is(err, apperrors.CodeInsufficientBalance))
	s.Zero(s.settlement.payoutCount())
}

func (s *WithdrawalServiceTestSuite) TestWithdrawalBelowMinimumPayout() {
	s.mintTimes(1) // creator holds 80

	cfg := testConfig()
	cfg.Payment.MinimumPayout = 100
	floored := NewWithdrawalService(s.db, cfg, s.settlement, nil, NewEntityLocks())

	_, err := floored.WithdrawCreatorEarnings(context.Background(), s.creator.ID, nil)
	s.True(apperrors.Is(err, apperrors.CodeInvalidInput))

	amount := int64(50)
	_, err = floored.WithdrawCreatorEarnings(context.Background(), s.creator.ID, &amount)
	s.True(apperrors.Is(err, apperrors.CodeInvalidInput))
	s.Zero(s.settlement.payoutCount())

	creatorAgg, err := s.revenue.CreatorEarnings(s.creator.ID)
	s.Require().NoError(err)
	s.Equal(int64(80), creatorAgg.CreatorEarnings)
}

func TestWithdrawalServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WithdrawalServiceTestSuite))
}
