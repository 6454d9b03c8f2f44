package game

import (
	"math"

	"mazewars/internal/maze"
)

// AdvanceRound counts the current phase down by ceil(elapsed) whole seconds
// and performs at most one transition when it reaches zero. A non-positive
// elapsed does nothing.
//
// Leaving Intermission bumps the difficulty, regenerates the maze and
// reallocates every player; that queues Map and Players broadcasts ahead of
// the Round broadcast every transition emits.
func AdvanceRound(w *World, elapsed float64) []Outbound {
	if elapsed <= 0 || math.IsNaN(elapsed) {
		return nil
	}

	step := math.Ceil(elapsed)
	if step >= float64(w.Round.Remaining) {
		w.Round.Remaining = 0
	} else {
		w.Round.Remaining -= int(step)
	}
	if w.Round.Remaining > 0 {
		return nil
	}

	var out []Outbound
	switch w.Round.Phase {
	case Lobby:
		w.Round.Phase = InRound
	case InRound:
		w.Round.Phase = Intermission
	case Intermission:
		next := w.Round.Difficulty.Next()
		grid, err := maze.Build(w.Grid.Width(), w.Grid.Height(), next, w.rng)
		if err == nil {
			w.Grid = grid
			ReallocateAll(w.Players, w.Grid)
			if w.OnRegenerate != nil {
				w.OnRegenerate(w.Grid, next)
			}
		}
		w.Round.Difficulty = next
		w.Round.Phase = Lobby
		out = append(out,
			Outbound{Target: Everyone, Msg: mapSnapshot(w.Grid)},
			playersBroadcast(w),
		)
	}
	w.Round.Remaining = w.durations.For(w.Round.Phase)

	return append(out, roundBroadcast(w.Round))
}
