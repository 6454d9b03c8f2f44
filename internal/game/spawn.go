package game

import (
	"sort"

	"mazewars/internal/maze"
)

// nearestFree scans Chebyshev rings around the grid center, row-major over
// each ring's perimeter, and returns the first open cell that taken rejects.
func nearestFree(g *maze.Grid, taken func(maze.Point) bool) (maze.Point, bool) {
	c := g.Center()
	maxR := g.Width()
	if g.Height() > maxR {
		maxR = g.Height()
	}

	for r := 0; r < maxR; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx != -r && dx != r && dy != -r && dy != r {
					continue
				}
				p := maze.Point{X: c.X + dx, Y: c.Y + dy}
				if !g.IsOpen(p.X, p.Y) || taken(p) {
					continue
				}
				return p, true
			}
		}
	}
	return maze.Point{}, false
}

// FindSingle returns the open, unoccupied cell nearest the center of the
// world's grid, or the fallback spawn when every open cell is taken.
func FindSingle(w *World) maze.Point {
	occupied := make(map[maze.Point]struct{}, len(w.Players))
	for _, p := range w.Players {
		occupied[p.Position()] = struct{}{}
	}

	p, ok := nearestFree(w.Grid, func(p maze.Point) bool {
		_, hit := occupied[p]
		return hit
	})
	if !ok {
		return maze.FallbackSpawn
	}
	return p
}

// ReallocateAll moves every player onto the new grid. Players are placed in
// ascending id order, each on the nearest open cell not already assigned in
// this pass, so positions are pairwise distinct while open cells last.
func ReallocateAll(players map[ClientID]*Player, grid *maze.Grid) {
	ids := make([]ClientID, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	used := make(map[maze.Point]struct{}, len(ids))
	taken := func(p maze.Point) bool {
		_, hit := used[p]
		return hit
	}

	for _, id := range ids {
		p, ok := nearestFree(grid, taken)
		if !ok {
			p = maze.FallbackSpawn
		}
		used[p] = struct{}{}
		players[id].X = p.X
		players[id].Y = p.Y
	}
}
