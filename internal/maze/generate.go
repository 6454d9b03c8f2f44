package maze

import (
	"math/rand"
	"time"
)

// Generate carves a perfect maze with a randomized depth-first backtracker.
//
// The grid is treated as a lattice of (width-1)/2 × (height-1)/2 rooms centered on
// odd coordinates. Starting from room (0,0) the walk repeatedly knocks down the wall
// to a random unvisited neighbor room, backtracking when none is left. The open cells
// form a spanning tree over all rooms and the outer frame stays Wall.
//
// A nil rng uses a time-seeded source.
func Generate(width, height int, rng *rand.Rand) (*Grid, error) {
	g, err := NewGrid(width, height)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	cols := (width - 1) / 2
	rows := (height - 1) / 2
	visited := make([]bool, cols*rows)
	stack := make([]Point, 0, cols*rows)

	visit := func(room Point) {
		visited[room.Y*cols+room.X] = true
		g.Set(2*room.X+1, 2*room.Y+1, Open)
		stack = append(stack, room)
	}

	visit(Point{})
	candidates := make([]Point, 0, 4)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]

		candidates = candidates[:0]
		for _, d := range orthogonal {
			n := Point{X: cur.X + d.X, Y: cur.Y + d.Y}
			if n.X < 0 || n.Y < 0 || n.X >= cols || n.Y >= rows {
				continue
			}
			if !visited[n.Y*cols+n.X] {
				candidates = append(candidates, n)
			}
		}

		if len(candidates) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		next := candidates[rng.Intn(len(candidates))]
		// The wall between two rooms sits at the midpoint of their grid coordinates.
		g.Set(cur.X+next.X+1, cur.Y+next.Y+1, Open)
		visit(next)
	}

	return g, nil
}

// Rooms returns the number of logical rooms a grid of this size holds.
func Rooms(width, height int) int {
	return ((width - 1) / 2) * ((height - 1) / 2)
}
