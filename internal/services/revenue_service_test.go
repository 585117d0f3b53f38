// internal/services/revenue_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/models"
)

func TestSplitAmountConservation(t *testing.T) {
	cases := []struct {
		name            string
		gross           int64
		creatorBps      int64
		wantCreator     int64
		wantPlatform    int64
	}{
		{"round split", 100, 8000, 80, 20},
		{"floor rounding goes to platform", 99, 8000, 79, 20},
		{"single unit", 1, 9999, 0, 1},
		{"full creator share", 500, 10000, 500, 0},
		{"zero creator share", 500, 0, 0, 500},
		{"zero gross", 0, 8000, 0, 0},
		{"odd everything", 333, 3333, 111, 222},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			creator, platform := SplitAmount(tc.gross, tc.creatorBps)
			assert.Equal(t, tc.wantCreator, creator)
			assert.Equal(t, tc.wantPlatform, platform)
			assert.Equal(t, tc.gross, creator+platform, "split must conserve the gross amount")
		})
	}
}

func TestSplitAmountNeverNegative(t *testing.T) {
	for gross := int64(0); gross <= 50; gross++ {
		for bps := int64(0); bps <= models.BpsDenominator; bps += 777 {
			creator, platform := SplitAmount(gross, bps)
			require.GreaterOrEqual(t, creator, int64(0))
			require.GreaterOrEqual(t, platform, int64(0))
			require.Equal(t, gross, creator+platform)
		}
	}
}

func TestRevenueRecordUpdatesAllScopes(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	revenue := NewRevenueService(db, cfg)
	catalog := NewCatalogService(db, cfg)
	creator := createTestUser(t, db, models.UserTypeCreator)

	project, err := catalog.CreateProject(creator.ID, &CreateProjectRequest{
		Title:       "Starfall",
		Description: "A space western.",
		Genres:      []string{"sci-fi"},
	})
	require.NoError(t, err)

	episode, err := catalog.CreateEpisode(project.ID, creator.ID, &CreateEpisodeRequest{
		Title:            "Episode 1",
		Description:      "The crash.",
		ContentReference: "ref",
		MintPrice:        100,
		MaxSupply:        10,
	})
	require.NoError(t, err)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return revenue.Record(tx, episode, 100, 80, 20)
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return revenue.Record(tx, episode, 100, 80, 20)
	}))

	creatorAgg, err := revenue.CreatorEarnings(creator.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), creatorAgg.TotalEarnings)
	assert.Equal(t, int64(160), creatorAgg.CreatorEarnings)

	projectAgg, err := revenue.ProjectEarnings(project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), projectAgg.TotalEarnings)
	assert.Equal(t, int64(160), projectAgg.CreatorEarnings)

	episodeAgg, err := revenue.EpisodeEarnings(episode.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), episodeAgg.TotalEarnings)

	ledger, err := revenue.PlatformBalance()
	require.NoError(t, err)
	assert.Equal(t, int64(40), ledger.PlatformFees)
	assert.Equal(t, int64(40), ledger.TotalCollected)

	var reloaded models.Episode
	require.NoError(t, db.First(&reloaded, episode.ID).Error)
	assert.Equal(t, int64(200), reloaded.TotalEarnings)

	var reloadedProject models.ComicProject
	require.NoError(t, db.First(&reloadedProject, project.ID).Error)
	assert.Equal(t, int64(200), reloadedProject.TotalEarnings)
}

func TestEarningsQueriesReturnZeroForUnknownScopes(t *testing.T) {
	db := newTestDB(t)
	revenue := NewRevenueService(db, testConfig())

	agg, err := revenue.EpisodeEarnings(424242)
	require.NoError(t, err)
	assert.Zero(t, agg.TotalEarnings)
	assert.Zero(t, agg.CreatorEarnings)
}
