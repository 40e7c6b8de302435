// Package repository defines the leaderboard store interface and errors.
package repository

import (
	"context"

	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/domain/types"
)

// Entry represents a leaderboard row.
type Entry = types.Entry

// Store provides read/write access to one session's player ranking.
type Store interface {
	// Put replaces the totals recorded for playerID.
	Put(ctx context.Context, playerID string, st model.PlayerStats) error

	// Rank returns the current rank and totals for a player.
	// Returns ErrNotFound if the player is unknown.
	Rank(ctx context.Context, playerID string) (Entry, error)

	// TopN returns the top-N entries ordered by points desc, player id asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of players tracked.
	Count(ctx context.Context) int
}
