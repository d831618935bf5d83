package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// BetForfeiter receives DNF events so the external bet ledger can forfeit
// the player's bets for the round. The engine only emits the event; bet
// accounting happens elsewhere.
type BetForfeiter interface {
	ForfeitBets(ctx context.Context, playerID, roundID uuid.UUID) error
}

// SlogBetForfeiter is the default BetForfeiter: it records the event in the
// structured log and nothing more. Deployments with a live bet service swap
// in a real client.
type SlogBetForfeiter struct {
	log *slog.Logger
}

// NewSlogBetForfeiter constructs a SlogBetForfeiter writing to log.
func NewSlogBetForfeiter(log *slog.Logger) *SlogBetForfeiter {
	return &SlogBetForfeiter{log: log}
}

func (f *SlogBetForfeiter) ForfeitBets(ctx context.Context, playerID, roundID uuid.UUID) error {
	f.log.InfoContext(ctx, "bet forfeiture emitted",
		"player_id", playerID,
		"round_id", roundID,
	)
	return nil
}
