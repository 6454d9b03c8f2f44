package maze

// DistanceField holds breadth-first step counts from one origin cell to every
// open cell of a grid. It is computed once and then queried in O(1), which is
// how the regeneration diagnostics and the connectivity tests measure a maze.
type DistanceField struct {
	width, height int
	origin        Point
	steps         []int // -1 for walls and unreachable cells
	queue         []int // reusable BFS queue
}

// Unreachable is the step count reported for walls and disconnected cells.
const Unreachable = -1

// NewDistanceField runs a 4-way BFS over open cells starting at origin.
// A walled or out-of-bounds origin yields a field where everything is Unreachable.
func NewDistanceField(g *Grid, origin Point) *DistanceField {
	size := g.width * g.height
	f := &DistanceField{
		width:  g.width,
		height: g.height,
		origin: origin,
		steps:  make([]int, size),
		queue:  make([]int, 0, size),
	}
	for i := range f.steps {
		f.steps[i] = Unreachable
	}

	if !g.IsOpen(origin.X, origin.Y) {
		return f
	}

	start := origin.Y*f.width + origin.X
	f.steps[start] = 0
	f.queue = append(f.queue, start)

	head := 0
	for head < len(f.queue) {
		current := f.queue[head]
		head++

		row := current / f.width
		col := current % f.width
		next := f.steps[current] + 1

		for _, d := range orthogonal {
			nc, nr := col+d.X, row+d.Y
			if !g.IsOpen(nc, nr) {
				continue
			}
			nidx := nr*f.width + nc
			if f.steps[nidx] != Unreachable {
				continue
			}
			f.steps[nidx] = next
			f.queue = append(f.queue, nidx)
		}
	}

	return f
}

// Origin returns the cell the field was computed from.
func (f *DistanceField) Origin() Point { return f.origin }

// At returns the step count to (x, y), or Unreachable.
func (f *DistanceField) At(x, y int) int {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return Unreachable
	}
	return f.steps[y*f.width+x]
}

// ReachableCount returns how many cells the origin can reach, itself included.
func (f *DistanceField) ReachableCount() int {
	n := 0
	for _, s := range f.steps {
		if s != Unreachable {
			n++
		}
	}
	return n
}

// Farthest returns the reachable cell with the largest step count.
// Ties resolve to the first cell in row-major order.
func (f *DistanceField) Farthest() (Point, int) {
	best, bestSteps := f.origin, f.At(f.origin.X, f.origin.Y)
	for i, s := range f.steps {
		if s > bestSteps {
			bestSteps = s
			best = Point{X: i % f.width, Y: i / f.width}
		}
	}
	return best, bestSteps
}

// Reachable reports whether b can be reached from a by orthogonal steps over open cells.
func Reachable(g *Grid, a, b Point) bool {
	return NewDistanceField(g, a).At(b.X, b.Y) != Unreachable
}

// Stats summarizes a grid for logs and diagnostics.
type Stats struct {
	Width       int  `json:"width"`
	Height      int  `json:"height"`
	OpenCells   int  `json:"openCells"`
	DeadEnds    int  `json:"deadEnds"`
	LongestPath int  `json:"longestPath"` // steps from the fallback spawn to the farthest cell
	Connected   bool `json:"connected"`
}

// Describe computes Stats for g.
func Describe(g *Grid) Stats {
	field := NewDistanceField(g, FallbackSpawn)
	_, longest := field.Farthest()
	open := g.OpenCount()
	return Stats{
		Width:       g.width,
		Height:      g.height,
		OpenCells:   open,
		DeadEnds:    CountDeadEnds(g),
		LongestPath: longest,
		Connected:   field.ReachableCount() == open,
	}
}
