package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/mkallio/tag-league/backend/internal/repo"
	"github.com/mkallio/tag-league/backend/testutil"
)

// testDB wraps a transaction against the test database with a Repos bundle
// bound to it. The transaction is rolled back when the test finishes, giving
// free per-test isolation — no cleanup SQL needed.
//
// Requires TEST_DATABASE_URL to be set; migrations are applied by TestMain.
type testDB struct {
	tx    pgx.Tx
	repos repo.Repos
}

func newTestDB(t *testing.T) *testDB {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return &testDB{tx: tx, repos: repo.NewRepos(tx)}
}

// exec runs raw SQL through the test transaction, for fixture rows the repo
// layer deliberately has no writers for (players, leagues, seasons).
func (d *testDB) exec(t *testing.T, sql string, args ...any) {
	t.Helper()
	_, err := d.tx.Exec(context.Background(), sql, args...)
	require.NoError(t, err, "fixture exec: %s", sql)
}

func (d *testDB) createPlayer(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	d.exec(t, `INSERT INTO players (id, name) VALUES ($1, $2)`, id, name)
	return id
}

func (d *testDB) createTagMaster(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	d.exec(t, `INSERT INTO players (id, name, roles) VALUES ($1, $2, '{TagMaster}')`, id, name)
	return id
}

func (d *testDB) createLeague(t *testing.T, organizerID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	d.exec(t, `INSERT INTO leagues (id, name, organizer_id) VALUES ($1, 'Test League', $2)`, id, organizerID)
	return id
}

func (d *testDB) addAssistant(t *testing.T, leagueID, playerID uuid.UUID) {
	t.Helper()
	d.exec(t, `INSERT INTO league_assistants (league_id, player_id) VALUES ($1, $2)`, leagueID, playerID)
}

func (d *testDB) createSeason(t *testing.T, leagueID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	d.exec(t, `
		INSERT INTO seasons (id, league_id, name, start_date, end_date)
		VALUES ($1, $2, '2026', '2026-03-01', '2026-10-31')`, id, leagueID)
	return id
}

func (d *testDB) createRound(t *testing.T, seasonID, creatorID uuid.UUID, date time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	d.exec(t, `
		INSERT INTO rounds (id, season_id, creator_id, date, course_name)
		VALUES ($1, $2, $3, $4, 'Meadow Park')`, id, seasonID, creatorID, date)
	return id
}

func (d *testDB) createCard(t *testing.T, roundID, creatorID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	d.exec(t, `INSERT INTO cards (id, round_id, creator_id) VALUES ($1, $2, $3)`, id, roundID, creatorID)
	return id
}

// leagueFixture is the scaffolding most repo tests need: an organizer, one
// league, one season, and one round dated 2026-05-01.
type leagueFixture struct {
	organizerID uuid.UUID
	leagueID    uuid.UUID
	seasonID    uuid.UUID
	roundID     uuid.UUID
}

func newLeagueFixture(t *testing.T, d *testDB) leagueFixture {
	t.Helper()
	organizer := d.createPlayer(t, "Organizer")
	league := d.createLeague(t, organizer)
	season := d.createSeason(t, league)
	round := d.createRound(t, season, organizer, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	return leagueFixture{organizerID: organizer, leagueID: league, seasonID: season, roundID: round}
}
