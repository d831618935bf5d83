package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Repos bundles one repo per aggregate, all bound to the same underlying
// connection. Inside Runner.InTx every repo shares a single transaction, so
// a service can read, compute, and write across aggregates atomically.
type Repos struct {
	Participations ParticipationRepo
	Cards          CardRepo
	Tags           TagRepo
	History        TagHistoryRepo
	Rounds         RoundRepo
	Seasons        SeasonRepo
	Leagues        LeagueRepo
}

// NewRepos constructs a Repos bundle over the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewRepos(db db) Repos {
	return Repos{
		Participations: NewParticipationRepo(db),
		Cards:          NewCardRepo(db),
		Tags:           NewTagRepo(db),
		History:        NewTagHistoryRepo(db),
		Rounds:         NewRoundRepo(db),
		Seasons:        NewSeasonRepo(db),
		Leagues:        NewLeagueRepo(db),
	}
}

// Runner executes work against the database, either directly or inside a
// single transaction. The service layer depends on this interface rather
// than on pgx, which lets unit tests substitute in-memory fakes.
type Runner interface {
	// InTx runs fn with a Repos bundle bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise,
	// so partial state changes are never observable.
	InTx(ctx context.Context, fn func(Repos) error) error

	// Repos returns a bundle bound to the base connection, for reads that
	// need no transactional scope.
	Repos() Repos
}

// beginner is the subset of *pgxpool.Pool the runner needs. pgx.Tx also
// satisfies it (nested calls become savepoints), so integration tests can
// wrap the runner itself in a rolled-back transaction.
type beginner interface {
	db
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGRunner is the Postgres implementation of Runner.
type PGRunner struct {
	db beginner
}

// NewRunner constructs a PGRunner over the provided connection.
func NewRunner(db beginner) *PGRunner {
	return &PGRunner{db: db}
}

func (r *PGRunner) InTx(ctx context.Context, fn func(Repos) error) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
	if err != nil {
		return fmt.Errorf("repo.PGRunner.InTx: %w", err)
	}
	return nil
}

func (r *PGRunner) Repos() Repos {
	return NewRepos(r.db)
}
