package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkallio/tag-league/backend/internal/domain"
	"github.com/mkallio/tag-league/backend/internal/service"
)

func newStandingsService(sc *scenario) *service.StandingsService {
	return service.NewStandingsService(sc.runner, service.NewEligibilityService(sc.runner))
}

func TestStandingsService_Standings(t *testing.T) {
	sc := newScenario(t, 3)
	svc := newStandingsService(sc)

	// Player 1 qualifies; the others have no completions.
	rounds := addRounds(sc, 3)
	for _, r := range rounds {
		completedInRound(sc, sc.players[0], r.ID)
	}

	rows, total, err := svc.Standings(context.Background(), sc.season.ID, domain.NewPaginationParams(nil, nil))

	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, rows, 3)

	// Ordered best tag first; ineligible players still appear.
	assert.Equal(t, 1, rows[0].TagNumber)
	assert.Equal(t, "Player 1", rows[0].PlayerName)
	assert.True(t, rows[0].Eligible)
	assert.False(t, rows[1].Eligible)
	assert.False(t, rows[2].Eligible)
}

func TestStandingsService_Standings_Paged(t *testing.T) {
	sc := newScenario(t, 5)
	svc := newStandingsService(sc)

	page, limit := 2, 2
	rows, total, err := svc.Standings(context.Background(), sc.season.ID, domain.NewPaginationParams(&page, &limit))

	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].TagNumber)
	assert.Equal(t, 4, rows[1].TagNumber)
}

func TestStandingsService_History_SeasonFilter(t *testing.T) {
	sc := newScenario(t, 1)
	svc := newStandingsService(sc)
	player := sc.players[0]

	other := sc.store.addSeason(sc.season.LeagueID)
	now := time.Now().UTC()
	sc.store.history = append(sc.store.history,
		domain.TagHistory{ID: uuid.New(), PlayerID: player, SeasonID: sc.season.ID, TagNumber: 1, AssignmentDate: now},
		domain.TagHistory{ID: uuid.New(), PlayerID: player, SeasonID: other.ID, TagNumber: 7, AssignmentDate: now},
	)

	all, total, err := svc.History(context.Background(), player, nil, domain.NewPaginationParams(nil, nil))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	filtered, total, err := svc.History(context.Background(), player, &other.ID, domain.NewPaginationParams(nil, nil))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, filtered, 1)
	assert.Equal(t, 7, filtered[0].TagNumber)
}

func TestStandingsService_RoundDetail(t *testing.T) {
	sc := newScenario(t, 3)
	engine := service.NewTagEngine(sc.runner, discardLogger())
	cards := service.NewCardService(sc.runner, engine, discardLogger())
	svc := newStandingsService(sc)

	card, err := cards.CreateCard(context.Background(), sc.players[0], sc.round.ID, sc.players)
	require.NoError(t, err)
	_, err = cards.EnterScores(context.Background(), card.ID, sc.players[0], scoresFor(sc, 55, 52, 60))
	require.NoError(t, err)

	// Mid-confirmation: every entered score is awaiting confirmation.
	detail, err := svc.RoundDetail(context.Background(), sc.round.ID)
	require.NoError(t, err)
	require.Len(t, detail.Cards, 1)
	assert.Len(t, detail.Cards[0].Members, 3)
	assert.Len(t, detail.Stale, 3)
	assert.Empty(t, detail.Deltas, "no deltas before the round is finalized")

	_, err = cards.ConfirmScores(context.Background(), card.ID, sc.players[1])
	require.NoError(t, err)

	detail, err = svc.RoundDetail(context.Background(), sc.round.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundFinalized, detail.Round.Status)
	assert.Empty(t, detail.Stale)
	assert.NotEmpty(t, detail.Deltas)
}

func TestStandingsService_RoundDetail_NotFound(t *testing.T) {
	sc := newScenario(t, 1)
	svc := newStandingsService(sc)

	_, err := svc.RoundDetail(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStandingsService_StaleScores(t *testing.T) {
	sc := newScenario(t, 3)
	engine := service.NewTagEngine(sc.runner, discardLogger())
	cards := service.NewCardService(sc.runner, engine, discardLogger())
	svc := newStandingsService(sc)

	card, err := cards.CreateCard(context.Background(), sc.players[0], sc.round.ID, sc.players)
	require.NoError(t, err)
	_, err = cards.EnterScores(context.Background(), card.ID, sc.players[0], scoresFor(sc, 55))
	require.NoError(t, err)

	// Backdate the entry beyond the window.
	p := sc.store.participations[sc.parts[sc.players[0]].ID]
	old := time.Now().UTC().Add(-3 * time.Hour)
	p.ScoreEnteredAt = &old
	sc.store.participations[p.ID] = p

	stale, err := svc.StaleScores(context.Background(), 2*time.Hour)

	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, sc.players[0], stale[0].PlayerID)
	assert.Greater(t, stale[0].Waiting, 2*time.Hour)

	// A fresh entry stays below the threshold.
	fresh, err := svc.StaleScores(context.Background(), 4*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}
