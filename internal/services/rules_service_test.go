// internal/services/rules_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/apperrors"
	"github.com/panelforge/panelforge-backend/internal/models"
)

type RulesServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	catalog *CatalogService
	rules   *RulesService
	locks   *EntityLocks
	creator *models.User
	episode *models.Episode
}

func (s *RulesServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.catalog = NewCatalogService(s.db, testConfig())
	s.locks = NewEntityLocks()
	s.rules = NewRulesService(s.db, s.locks)
	s.creator = createTestUser(s.T(), s.db, models.UserTypeCreator)

	project, err := s.catalog.CreateProject(s.creator.ID, &CreateProjectRequest{
		Title:       "Starfall",
		Description: "A space western.",
		Genres:      []string{"sci-fi"},
	})
	s.Require().NoError(err)

	s.episode, err = s.catalog.CreateEpisode(project.ID, s.creator.ID, &CreateEpisodeRequest{
		Title:            "Episode 1",
		Description:      "The crash.",
		ContentReference: "ref",
		MintPrice:        100,
		MaxSupply:        10,
	})
	s.Require().NoError(err)
}

func (s *RulesServiceTestSuite) TestSetRulesMirrorsEpisode() {
	rules, err := s.rules.SetMintingRules(s.episode.ID, s.creator.ID, &SetMintingRulesRequest{
		MintPrice:          250,
		MaxSupply:          50,
		CreatorRewardBps:   8000,
		PlatformFeeBps:     1500,
		AllowPublicMinting: true,
		PayPerRead:         true,
		ReadPrice:          20,
	})
	s.Require().NoError(err)
	s.Equal(int64(250), rules.MintPrice)
	s.Equal(int64(8000), rules.CreatorRewardBps)

	var episode models.Episode
	s.Require().NoError(s.db.First(&episode, s.episode.ID).Error)
	s.Equal(int64(250), episode.MintPrice)
	s.Equal(int64(50), episode.MaxSupply)
	s.True(episode.PayPerRead)
	s.Equal(int64(20), episode.ReadPrice)
}

func (s *RulesServiceTestSuite) TestSetRulesRejectsBpsOverflow() {
	_, err := s.rules.SetMintingRules(s.episode.ID, s.creator.ID, &SetMintingRulesRequest{
		MintPrice:        100,
		MaxSupply:        10,
		CreatorRewardBps: 9000,
		PlatformFeeBps:   2000,
	})
	s.True(apperrors.Is(err, apperrors.CodeInvalidPercentages))
}

func (s *RulesServiceTestSuite) TestSetRulesRejectsPayPerReadWithoutPrice() {
	_, err := s.rules.SetMintingRules(s.episode.ID, s.creator.ID, &SetMintingRulesRequest{
		MintPrice:        100,
		MaxSupply:        10,
		CreatorRewardBps: 8000,
		PlatformFeeBps:   1000,
		PayPerRead:       true,
	})
	s.True(apperrors.Is(err, apperrors.CodeInvalidInput))
}

func (s *RulesServiceTestSuite) TestSetRulesForbiddenForNonOwner() {
	other := createTestUser(s.T(), s.db, models.UserTypeCreator)
	_, err := s.rules.SetMintingRules(s.episode.ID, other.ID, &SetMintingRulesRequest{
		MintPrice:        100,
		MaxSupply:        10,
		CreatorRewardBps: 8000,
		PlatformFeeBps:   1000,
	})
	s.True(apperrors.Is(err, apperrors.CodeForbidden))
}

func (s *RulesServiceTestSuite) TestRulesFreezeOnceLive() {
	s.Require().NoError(s.db.Model(&models.Episode{}).
		Where("id = ?", s.episode.ID).
		Update("live", true).Error)

	_, err := s.rules.SetMintingRules(s.episode.ID, s.creator.ID, &SetMintingRulesRequest{
		MintPrice:        999,
		MaxSupply:        10,
		CreatorRewardBps: 8000,
		PlatformFeeBps:   1000,
	})
	s.True(apperrors.Is(err, apperrors.CodeAlreadyLive))
}

// Rules writes share the episode lock with go-live and minting, so an
// in-flight live transition can never interleave with an economics update.
func (s *RulesServiceTestSuite) TestSetRulesWaitsForEpisodeLock() {
	unlock := s.locks.Lock(episodeLockKey(s.episode.ID))

	done := make(chan error, 1)
	go func() {
		_, err := s.rules.SetMintingRules(s.episode.ID, s.creator.ID, &SetMintingRulesRequest{
			MintPrice:        300,
			MaxSupply:        10,
			CreatorRewardBps: 8000,
			PlatformFeeBps:   1000,
		})
		done <- err
	}()

	select {
	case <-done:
		s.FailNow("rules update ran while the episode lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	s.Require().NoError(<-done)

	var episode models.Episode
	s.Require().NoError(s.db.First(&episode, s.episode.ID).Error)
	s.Equal(int64(300), episode.MintPrice)
}

func (s *RulesServiceTestSuite) TestGetRulesNotFound() {
	_, err := s.rules.GetMintingRules(12345)
	s.True(apperrors.Is(err, apperrors.CodeNotFound))
}

func TestRulesServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RulesServiceTestSuite))
}
