package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkallio/tag-league/backend/internal/domain"
	"github.com/mkallio/tag-league/backend/internal/repo"
)

// The runner over a pgx.Tx nests as a savepoint, so a failed InTx must roll
// its writes back without touching work done outside it.
func TestPGRunner_InTx_RollsBackOnError(t *testing.T) {
	d := newTestDB(t)
	fx := newLeagueFixture(t, d)
	ctx := context.Background()

	runner := repo.NewRunner(d.tx)
	player := d.createPlayer(t, "Alice")

	sentinel := errors.New("boom")
	err := runner.InTx(ctx, func(r repo.Repos) error {
		_, err := r.Participations.Create(ctx, domain.Participation{
			PlayerID: player, RoundID: fx.roundID, Status: domain.StatusRegistered,
		})
		require.NoError(t, err)
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = d.repos.Participations.GetByPlayerRound(ctx, player, fx.roundID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "the write must be rolled back")
}

func TestPGRunner_InTx_CommitsOnNil(t *testing.T) {
	d := newTestDB(t)
	fx := newLeagueFixture(t, d)
	ctx := context.Background()

	runner := repo.NewRunner(d.tx)
	player := d.createPlayer(t, "Alice")

	err := runner.InTx(ctx, func(r repo.Repos) error {
		_, err := r.Participations.Create(ctx, domain.Participation{
			PlayerID: player, RoundID: fx.roundID, Status: domain.StatusRegistered,
		})
		return err
	})
	require.NoError(t, err)

	got, err := d.repos.Participations.GetByPlayerRound(ctx, player, fx.roundID)
	require.NoError(t, err)
	assert.Equal(t, player, got.PlayerID)
}
