package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkallio/tag-league/backend/internal/domain"
)

// seedTags creates players named after their tag numbers and gives them tags
// 1..n in the fixture season. Returns tags in number order.
func seedTags(t *testing.T, d *testDB, fx leagueFixture, n int) []domain.Tag {
	t.Helper()
	ctx := context.Background()

	out := make([]domain.Tag, 0, n)
	for i := 1; i <= n; i++ {
		player := d.createPlayer(t, "Player")
		tag, err := d.repos.Tags.Create(ctx, domain.Tag{
			PlayerID:       player,
			SeasonID:       fx.seasonID,
			TagNumber:      i,
			AssignmentDate: time.Now().UTC(),
		})
		require.NoError(t, err)
		out = append(out, tag)
	}
	return out
}

func TestTagRepo_CreateAndGet(t *testing.T) {
	d := newTestDB(t)
	fx := newLeagueFixture(t, d)
	ctx := context.Background()

	player := d.createPlayer(t, "Alice")
	created, err := d.repos.Tags.Create(ctx, domain.Tag{
		PlayerID:       player,
		SeasonID:       fx.seasonID,
		TagNumber:      1,
		AssignmentDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := d.repos.Tags.GetByPlayerSeason(ctx, player, fx.seasonID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 1, got.TagNumber)
}

func TestTagRepo_GetByPlayerSeason_NotFound(t *testing.T) {
	d := newTestDB(t)
	fx := newLeagueFixture(t, d)

	_, err := d.repos.Tags.GetByPlayerSeason(context.Background(), uuid.New(), fx.seasonID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTagRepo_LockSeasonOrdering(t *testing.T) {
	d := newTestDB(t)
	fx := newLeagueFixture(t, d)

	seedTags(t, d, fx, 4)

	tags, err := d.repos.Tags.LockSeason(context.Background(), fx.seasonID)

	require.NoError(t, err)
	require.Len(t, tags, 4)
	for i, tag := range tags {
		assert.Equal(t, i+1, tag.TagNumber, "ordered by tag number")
	}
}

func TestTagRepo_LockPlayersSubset(t *testing.T) {
	d := newTestDB(t)
	fx := newLeagueFixture(t, d)

	tags := seedTags(t, d, fx, 5)

	subset, err := d.repos.Tags.LockPlayers(context.Background(), fx.seasonID,
		[]uuid.UUID{tags[4].PlayerID, tags[1].PlayerID})

	require.NoError(t, err)
	require.Len(t, subset, 2)
	assert.Equal(t, 2, subset[0].TagNumber)
	assert.Equal(t, 5, subset[1].TagNumber)
}

// Permuting numbers inside one transaction requires the deferred constraint:
// with the check immediate the first UPDATE would collide.
func TestTagRepo_DeferredConstraintPermutation(t *testing.T) {
	d := newTestDB(t)
	fx := newLeagueFixture(t, d)
	ctx := context.Background()

	tags := seedTags(t, d, fx, 2)
	require.NoError(t, d.repos.Tags.DeferSeasonNumberCheck(ctx))

	now := time.Now().UTC()
	require.NoError(t, d.repos.Tags.UpdateNumber(ctx, tags[0].ID, 2, now))
	require.NoError(t, d.repos.Tags.UpdateNumber(ctx, tags[1].ID, 1, now))

	after, err := d.repos.Tags.ListBySeason(ctx, fx.seasonID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, tags[1].PlayerID, after[0].PlayerID)
	assert.Equal(t, tags[0].PlayerID, after[1].PlayerID)
}

func TestTagRepo_UpdateNumber_NotFound(t *testing.T) {
	d := newTestDB(t)
	newLeagueFixture(t, d)

	err := d.repos.Tags.UpdateNumber(context.Background(), uuid.New(), 1, time.Now().UTC())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTagRepo_ListStandings(t *testing.T) {
	d := newTestDB(t)
	fx := newLeagueFixture(t, d)

	seedTags(t, d, fx, 5)

	page, limit := 1, 3
	rows, total, err := d.repos.Tags.ListStandings(context.Background(), fx.seasonID,
		domain.NewPaginationParams(&page, &limit))

	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].TagNumber)
	assert.Equal(t, "Player", rows[0].PlayerName)
	assert.Equal(t, 3, rows[2].TagNumber)
}

func TestTagRepo_Create_NumberTaken(t *testing.T) {
	d := newTestDB(t)
	fx := newLeagueFixture(t, d)
	ctx := context.Background()

	seedTags(t, d, fx, 1)

	// The unique violation aborts the test transaction; keep this last.
	_, err := d.repos.Tags.Create(ctx, domain.Tag{
		PlayerID:       d.createPlayer(t, "Bob"),
		SeasonID:       fx.seasonID,
		TagNumber:      1,
		AssignmentDate: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrReassignmentConflict)
}
