package game

import (
	"sync/atomic"
	"time"

	"mazewars/internal/maze"
)

// GameSnapshot is an immutable copy of the world published after every tick
// for readers outside the simulation (HTTP API, map renderer).
type GameSnapshot struct {
	Sequence   uint64    // Monotonic sequence for ordering
	Timestamp  time.Time // When snapshot was created
	TickNumber uint64
	RoundID    string

	Round   RoundUpdate
	Players []Player // sorted by id

	// Grid is shared with the world. The world never mutates a grid after
	// building it, only replaces it.
	Grid *maze.Grid
}

// Positions returns the players' cells, in id order.
func (s *GameSnapshot) Positions() []maze.Point {
	out := make([]maze.Point, len(s.Players))
	for i, p := range s.Players {
		out[i] = maze.Point{X: p.X, Y: p.Y}
	}
	return out
}

// SnapshotStore publishes snapshots from the tick goroutine to any number of
// concurrent readers.
type SnapshotStore struct {
	latest   atomic.Pointer[GameSnapshot]
	sequence atomic.Uint64
}

// Publish builds a snapshot of w and makes it the latest. Callers must hold
// whatever lock guards w.
func (s *SnapshotStore) Publish(w *World, tick uint64, roundID string) *GameSnapshot {
	snap := &GameSnapshot{
		Sequence:   s.sequence.Add(1),
		Timestamp:  time.Now(),
		TickNumber: tick,
		RoundID:    roundID,
		Round:      RoundOf(w),
		Players:    w.SortedPlayers(),
		Grid:       w.Grid,
	}
	s.latest.Store(snap)
	return snap
}

// Latest returns the most recent snapshot, or nil before the first publish.
func (s *SnapshotStore) Latest() *GameSnapshot {
	return s.latest.Load()
}
