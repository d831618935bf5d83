package service_test

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mkallio/tag-league/backend/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scenario is the common starting point for workflow tests: one league with
// an organizer, one season, one open round, and n players who are checked in
// and hold tags 1..n.
type scenario struct {
	store     *memStore
	runner    *memRunner
	organizer uuid.UUID
	season    domain.Season
	round     domain.Round
	players   []uuid.UUID
	parts     map[uuid.UUID]domain.Participation // by player id
}

func newScenario(t *testing.T, n int) *scenario {
	t.Helper()

	store := newMemStore()
	season := store.addSeason(uuid.New())
	round := store.addRound(season.ID, time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC))

	sc := &scenario{
		store:     store,
		runner:    &memRunner{s: store},
		organizer: store.addPlayer("Organizer"),
		season:    season,
		round:     round,
		parts:     map[uuid.UUID]domain.Participation{},
	}
	store.grantManager(sc.organizer, round.ID)

	for i := 0; i < n; i++ {
		player := store.addPlayer(fmt.Sprintf("Player %d", i+1))
		sc.players = append(sc.players, player)
		sc.parts[player] = store.addParticipation(player, round.ID, domain.StatusCheckedIn)
		store.addTag(player, season.ID, i+1)
	}
	return sc
}

// tagNumber returns the player's current tag number in the scenario season.
func (sc *scenario) tagNumber(t *testing.T, playerID uuid.UUID) int {
	t.Helper()
	for _, tag := range sc.store.tags {
		if tag.PlayerID == playerID && tag.SeasonID == sc.season.ID {
			return tag.TagNumber
		}
	}
	t.Fatalf("player %s holds no tag", playerID)
	return 0
}

// participation returns the player's current participation record.
func (sc *scenario) participation(t *testing.T, playerID uuid.UUID) domain.Participation {
	t.Helper()
	for _, p := range sc.store.participations {
		if p.PlayerID == playerID && p.RoundID == sc.round.ID {
			return p
		}
	}
	t.Fatalf("player %s has no participation", playerID)
	return domain.Participation{}
}
