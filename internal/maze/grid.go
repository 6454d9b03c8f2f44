// Package maze builds and inspects the tile grids the game is played on.
//
// A grid is a width × height array of Open/Wall cells with odd dimensions.
// Odd coordinates on both axes are the "rooms" of the logical lattice;
// even coordinates hold the walls between them.
package maze

import (
	"errors"
	"fmt"
)

// Cell is a single tile of the grid. The numeric values are the wire encoding.
type Cell uint8

const (
	Open Cell = 0
	Wall Cell = 1
)

// MinDimension is the smallest legal width or height.
const MinDimension = 3

// ErrInvalidDimensions is returned when a grid is requested with even or too small sides.
var ErrInvalidDimensions = errors.New("maze dimensions must be odd and at least 3")

// Point is a grid coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FallbackSpawn is where players land when no free open cell can be found.
// Logical cell (0,0) is always carved, so this cell is always Open.
var FallbackSpawn = Point{X: 1, Y: 1}

// Grid is a row-major array of cells.
type Grid struct {
	width  int
	height int
	cells  []Cell
}

// ValidateDimensions checks that width and height can hold a lattice.
func ValidateDimensions(width, height int) error {
	if width < MinDimension || height < MinDimension || width%2 == 0 || height%2 == 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	return nil
}

// NewGrid returns a grid with every cell set to Wall.
func NewGrid(width, height int) (*Grid, error) {
	if err := ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	cells := make([]Cell, width*height)
	for i := range cells {
		cells[i] = Wall
	}
	return &Grid{width: width, height: height, cells: cells}, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// At returns the cell at (x, y). Out-of-bounds reads return Wall.
func (g *Grid) At(x, y int) Cell {
	if !g.InBounds(x, y) {
		return Wall
	}
	return g.cells[y*g.width+x]
}

// IsOpen reports whether (x, y) is on the grid and walkable.
func (g *Grid) IsOpen(x, y int) bool {
	return g.At(x, y) == Open
}

// Set overwrites a cell. Out-of-bounds writes are ignored.
func (g *Grid) Set(x, y int, c Cell) {
	if !g.InBounds(x, y) {
		return
	}
	g.cells[y*g.width+x] = c
}

// IsBorder reports whether (x, y) is part of the outer frame.
func (g *Grid) IsBorder(x, y int) bool {
	return x == 0 || y == 0 || x == g.width-1 || y == g.height-1
}

// OpenCount returns the number of Open cells.
func (g *Grid) OpenCount() int {
	n := 0
	for _, c := range g.cells {
		if c == Open {
			n++
		}
	}
	return n
}

// Bits returns the cells as 0/1 ints in row-major order, ready for JSON.
func (g *Grid) Bits() []int {
	out := make([]int, len(g.cells))
	for i, c := range g.cells {
		out[i] = int(c)
	}
	return out
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return &Grid{width: g.width, height: g.height, cells: cells}
}

// Center returns the middle cell (integer division on both axes).
func (g *Grid) Center() Point {
	return Point{X: g.width / 2, Y: g.height / 2}
}

// wallNeighbors appends the orthogonal neighbors of (x, y) that are Wall.
// Order is fixed: up, down, left, right.
func (g *Grid) wallNeighbors(dst []Point, x, y int) []Point {
	for _, d := range orthogonal {
		nx, ny := x+d.X, y+d.Y
		if g.At(nx, ny) == Wall {
			dst = append(dst, Point{X: nx, Y: ny})
		}
	}
	return dst
}

var orthogonal = [4]Point{{X: 0, Y: -1}, {X: 0, Y: 1}, {X: -1, Y: 0}, {X: 1, Y: 0}}
