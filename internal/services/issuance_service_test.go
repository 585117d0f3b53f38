// internal/services/issuance_service_test.go
package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/apperrors"
	"github.com/panelforge/panelforge-backend/internal/models"
)

type IssuanceServiceTestSuite struct {
	suite.Suite
	db         *gorm.DB
	catalog    *CatalogService
	rules      *RulesService
	revenue    *RevenueService
	settlement *fakeSettlement
	issuance   *IssuanceService
	creator    *models.User
	buyer      *models.User
	project    *models.ComicProject
}

func (s *IssuanceServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	cfg := testConfig()
	locks := NewEntityLocks()
	s.settlement = &fakeSettlement{}
	s.catalog = NewCatalogService(s.db, cfg)
	s.rules = NewRulesService(s.db, locks)
	s.revenue = NewRevenueService(s.db, cfg)
	s.issuance = NewIssuanceService(s.db, s.revenue, s.settlement, NewLedgerMinter(s.db), nil, locks)
	s.creator = createTestUser(s.T(), s.db, models.UserTypeCreator)
	s.buyer = createTestUser(s.T(), s.db, models.UserTypeReader)

	var err error
	s.project, err = s.catalog.CreateProject(s.creator.ID, &CreateProjectRequest{
		Title:       "Starfall",
		Description: "A space western.",
		Genres:      []string{"sci-fi"},
	})
	s.Require().NoError(err)
}

func (s *IssuanceServiceTestSuite) newEpisode(mintPrice, maxSupply, creatorBps, platformBps int64) *models.Episode {
	episode, err := s.catalog.CreateEpisode(s.project.ID, s.creator.ID, &CreateEpisodeRequest{
		Title:            "Episode",
		Description:      "pages",
		ContentReference: "ref",
		MintPrice:        mintPrice,
		MaxSupply:        maxSupply,
	})
	s.Require().NoError(err)

	_, err = s.rules.SetMintingRules(episode.ID, s.creator.ID, &SetMintingRulesRequest{
		MintPrice:          mintPrice,
		MaxSupply:          maxSupply,
		CreatorRewardBps:   creatorBps,
		PlatformFeeBps:     platformBps,
		AllowPublicMinting: true,
	})
	s.Require().NoError(err)
	return episode
}

func (s *IssuanceServiceTestSuite) goLive(episodeID int64) {
	_, err := s.issuance.GoLive(context.Background(), episodeID, s.creator.ID)
	s.Require().NoError(err)
}

func (s *IssuanceServiceTestSuite) TestGoLiveRequiresPrice() {
	episode := s.newEpisode(0, 10, 8000, 1000)
	_, err := s.issuance.GoLive(context.Background(), episode.ID, s.creator.ID)
	s.True(apperrors.Is(err, apperrors.CodePriceNotSet))
}

func (s *IssuanceServiceTestSuite) TestGoLiveIsOneWay() {
	episode := s.newEpisode(100, 10, 8000, 1000)

	live, err := s.issuance.GoLive(context.Background(), episode.ID, s.creator.ID)
	s.Require().NoError(err)
	s.True(live.Live)

	_, err = s.issuance.GoLive(context.Background(), episode.ID, s.creator.ID)
	s.True(apperrors.Is(err, apperrors.CodeAlreadyLive))
}

func (s *IssuanceServiceTestSuite) TestGoLiveForbiddenForNonOwner() {
	episode := s.newEpisode(100, 10, 8000, 1000)
	_, err := s.issuance.GoLive(context.Background(), episode.ID, s.buyer.ID)
	s.True(apperrors.Is(err, apperrors.CodeForbidden))
}

func (s *IssuanceServiceTestSuite) TestMintRequiresLiveEpisode() {
	episode := s.newEpisode(100, 10, 8000, 1000)
	_, err := s.issuance.Mint(context.Background(), episode.ID, s.buyer.ID)
	s.True(apperrors.Is(err, apperrors.CodeEpisodeNotLive))
	s.Zero(s.settlement.chargeCount())
}

func (s *IssuanceServiceTestSuite) TestMintRespectsPublicMintingFlag() {
	episode := s.newEpisode(100, 10, 8000, 1000)
	_, err := s.rules.SetMintingRules(episode.ID, s.creator.ID, &SetMintingRulesRequest{
		MintPrice:          100,
		MaxSupply:          10,
		CreatorRewardBps:   8000,
		PlatformFeeBps:     1000,
		AllowPublicMinting: false,
	})
	s.Require().NoError(err)
	s.goLive(episode.ID)

	_, err = s.issuance.Mint(context.Background(), episode.ID, s.buyer.ID)
	s.True(apperrors.Is(err, apperrors.CodeMintingDisabled))
}

// Two copies at 100 with an 8000 bps creator share: the creator keeps 80
// per copy and the platform takes the 20 remainder, twice. The third mint
// hits the cap.
func (s *IssuanceServiceTestSuite) TestMintLifecycle() {
	episode := s.newEpisode(100, 2, 8000, 200)
	s.goLive(episode.ID)

	first, err := s.issuance.Mint(context.Background(), episode.ID, s.buyer.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), first.SerialNumber)
	s.Equal(s.buyer.ID, first.OwnerID)
	s.NotEmpty(first.ContentHash)
	s.NotEmpty(first.PaymentReference)

	second, err := s.issuance.Mint(context.Background(), episode.ID, s.buyer.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), second.SerialNumber)

	_, err = s.issuance.Mint(context.Background(), episode.ID, s.buyer.ID)
	s.True(apperrors.Is(err, apperrors.CodeSupplyExceeded))

	var reloaded models.Episode
	s.Require().NoError(s.db.First(&reloaded, episode.ID).Error)
	s.Equal(int64(2), reloaded.CurrentSupply)
	s.Equal(int64(200), reloaded.TotalEarnings)

	creatorAgg, err := s.revenue.CreatorEarnings(s.creator.ID)
	s.Require().NoError(err)
	s.Equal(int64(200), creatorAgg.TotalEarnings)
	s.Equal(int64(160), creatorAgg.CreatorEarnings)

	ledger, err := s.revenue.PlatformBalance()
	s.Require().NoError(err)
	s.Equal(int64(40), ledger.PlatformFees)

	s.Equal(2, s.settlement.chargeCount())
}

func (s *IssuanceServiceTestSuite) TestMintSettlementFailureRollsBackEverything() {
	episode := s.newEpisode(100, 10, 8000, 1000)
	s.goLive(episode.ID)
	s.settlement.failCharge = true

	_, err := s.issuance.Mint(context.Background(), episode.ID, s.buyer.ID)
	s.True(apperrors.Is(err, apperrors.CodeSettlementFailed))

	var reloaded models.Episode
	s.Require().NoError(s.db.First(&reloaded, episode.ID).Error)
	s.Zero(reloaded.CurrentSupply)
	s.Zero(reloaded.TotalEarnings)

	creatorAgg, err := s.revenue.CreatorEarnings(s.creator.ID)
	s.Require().NoError(err)
	s.Zero(creatorAgg.TotalEarnings)

	var tokenCount int64
	s.db.Model(&models.ComicToken{}).Count(&tokenCount)
	s.Zero(tokenCount)
}

func (s *IssuanceServiceTestSuite) TestMinterFailureKeepsSettlementAndQueuesReconciliation() {
	episode := s.newEpisode(100, 10, 8000, 1000)
	s.goLive(episode.ID)

	broken := NewIssuanceService(s.db, s.revenue, s.settlement, failingMinter{}, nil, NewEntityLocks())
	_, err := broken.Mint(context.Background(), episode.ID, s.buyer.ID)
	s.True(apperrors.Is(err, apperrors.CodeMintFailed))

	// The paid slot stays committed.
	var reloaded models.Episode
	s.Require().NoError(s.db.First(&reloaded, episode.ID).Error)
	s.Equal(int64(1), reloaded.CurrentSupply)
	s.Equal(1, s.settlement.chargeCount())

	var entries []models.ReconciliationEntry
	s.Require().NoError(s.db.Find(&entries).Error)
	s.Require().Len(entries, 1)
	s.Equal(episode.ID, entries[0].EpisodeID)
	s.Equal(s.buyer.ID, entries[0].BuyerID)
	s.Equal(int64(100), entries[0].Amount)
	s.False(entries[0].Resolved)
}

func (s *IssuanceServiceTestSuite) TestConcurrentMintsNeverOversell() {
	episode := s.newEpisode(100, 1, 8000, 1000)
	s.goLive(episode.ID)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.issuance.Mint(context.Background(), episode.ID, s.buyer.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, capped int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case apperrors.Is(err, apperrors.CodeSupplyExceeded):
			capped++
		default:
			s.FailNowf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, capped)

	var reloaded models.Episode
	s.Require().NoError(s.db.First(&reloaded, episode.ID).Error)
	s.Equal(int64(1), reloaded.CurrentSupply)
	s.Equal(1, s.settlement.chargeCount())
}

func (s *IssuanceServiceTestSuite) TestReconciliationResolution() {
	episode := s.newEpisode(100, 10, 8000, 1000)
	s.goLive(episode.ID)

	broken := NewIssuanceService(s.db, s.revenue, s.settlement, failingMinter{}, nil, NewEntityLocks())
	_, err := broken.Mint(context.Background(), episode.ID, s.buyer.ID)
	s.True(apperrors.Is(err, apperrors.CodeMintFailed))

	entries, total, err := s.issuance.ListReconciliationEntries(paginationDefaults())
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(entries, 1)

	s.Require().NoError(s.issuance.ResolveReconciliationEntry(entries[0].ID))

	_, total, err = s.issuance.ListReconciliationEntries(paginationDefaults())
	s.Require().NoError(err)
	s.Zero(total)

	err = s.issuance.ResolveReconciliationEntry(entries[0].ID)
	s.True(apperrors.Is(err, apperrors.CodeNotFound))
}

func (s *IssuanceServiceTestSuite) TestListTokens() {
	episode := s.newEpisode(100, 5, 8000, 1000)
	s.goLive(episode.ID)

	for i := 0; i < 3; i++ {
		_, err := s.issuance.Mint(context.Background(), episode.ID, s.buyer.ID)
		s.Require().NoError(err)
	}

	tokens, total, err := s.issuance.ListTokens(s.buyer.ID, paginationDefaults())
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(tokens, 3)
	s.Equal(int64(3), tokens[0].SerialNumber)
}

func TestIssuanceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IssuanceServiceTestSuite))
}
