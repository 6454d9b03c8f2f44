package maze

import (
	"math"
	"math/rand"
	"time"
)

// IsDeadEnd reports whether (x, y) is an open interior cell with exactly three
// walled orthogonal neighbors.
func IsDeadEnd(g *Grid, x, y int) bool {
	if !g.InBounds(x, y) || g.IsBorder(x, y) || !g.IsOpen(x, y) {
		return false
	}
	walls := 0
	for _, d := range orthogonal {
		if g.At(x+d.X, y+d.Y) == Wall {
			walls++
		}
	}
	return walls == 3
}

// DeadEnds lists every dead end in row-major order.
func DeadEnds(g *Grid) []Point {
	var out []Point
	for y := 1; y < g.height-1; y++ {
		for x := 1; x < g.width-1; x++ {
			if IsDeadEnd(g, x, y) {
				out = append(out, Point{X: x, Y: y})
			}
		}
	}
	return out
}

// CountDeadEnds returns len(DeadEnds(g)) without allocating the list.
func CountDeadEnds(g *Grid) int {
	n := 0
	for y := 1; y < g.height-1; y++ {
		for x := 1; x < g.width-1; x++ {
			if IsDeadEnd(g, x, y) {
				n++
			}
		}
	}
	return n
}

// Shape lowers dead-end density by opening loops.
//
// Dead ends are enumerated once; floor(count × ratio) of them are drawn at random
// without replacement and one of their walled neighbors is opened. Opening a wall only
// adds edges, so nothing reachable before becomes unreachable. The outer frame is never
// opened. ratio is clamped to [0, 1]. Returns the number of walls opened.
func Shape(g *Grid, ratio float64, rng *rand.Rand) int {
	if ratio <= 0 {
		return 0
	}
	if ratio > 1 {
		ratio = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	pool := DeadEnds(g)
	target := int(math.Floor(float64(len(pool)) * ratio))

	opened := 0
	neighbors := make([]Point, 0, 4)
	walls := make([]Point, 0, 4)
	for i := 0; i < target && len(pool) > 0; i++ {
		idx := rng.Intn(len(pool))
		de := pool[idx]
		pool[idx] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]

		neighbors = g.wallNeighbors(neighbors[:0], de.X, de.Y)
		walls = walls[:0]
		for _, w := range neighbors {
			if !g.IsBorder(w.X, w.Y) {
				walls = append(walls, w)
			}
		}
		if len(walls) == 0 {
			continue
		}
		w := walls[rng.Intn(len(walls))]
		g.Set(w.X, w.Y, Open)
		opened++
	}
	return opened
}
