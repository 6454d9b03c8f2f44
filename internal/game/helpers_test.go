package game

import (
	"math/rand"
	"testing"

	"mazewars/internal/maze"
)

// openGrid returns a grid whose interior is entirely open.
func openGrid(t *testing.T, width, height int) *maze.Grid {
	t.Helper()
	g, err := maze.NewGrid(width, height)
	if err != nil {
		t.Fatalf("NewGrid(%d, %d) failed: %v", width, height, err)
	}
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			g.Set(x, y, maze.Open)
		}
	}
	return g
}

// worldOn wraps an existing grid in a lobby-state world.
func worldOn(g *maze.Grid) *World {
	d := DefaultRoundDurations()
	return &World{
		Grid:      g,
		Players:   make(map[ClientID]*Player),
		Round:     Round{Phase: Lobby, Remaining: d.Lobby, Difficulty: maze.Medium},
		durations: d,
		rng:       rand.New(rand.NewSource(1)),
	}
}

func newTestWorld(t *testing.T, d maze.Difficulty, seed int64) *World {
	t.Helper()
	w, err := NewWorld(WorldConfig{Width: 41, Height: 31, Difficulty: d, Seed: seed})
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}
	return w
}

func chebyshev(a, b maze.Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}

func assertDistinctOpen(t *testing.T, w *World) {
	t.Helper()
	seen := make(map[maze.Point]ClientID)
	for id, p := range w.Players {
		pos := p.Position()
		if !w.Grid.IsOpen(pos.X, pos.Y) {
			t.Errorf("player %d stands on a wall at %v", id, pos)
		}
		if other, dup := seen[pos]; dup {
			t.Errorf("players %d and %d share %v", id, other, pos)
		}
		seen[pos] = id
	}
}

func events(out []Outbound) []string {
	names := make([]string, len(out))
	for i, o := range out {
		names[i] = o.Msg.Event()
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// occupied reports whether any player stands on (x, y).
func (w *World) occupied(x, y int) bool {
	for _, p := range w.Players {
		if p.X == x && p.Y == y {
			return true
		}
	}
	return false
}
