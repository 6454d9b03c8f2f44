package maze

import (
	"math/rand"
	"testing"
)

// corridor builds a 7x5 grid with a single horizontal corridor on row 1 and a
// spur going down from (3,1).
//
//	#######
//	#.....#
//	###.###
//	###.###
//	#######
func corridor(t *testing.T) *Grid {
	t.Helper()
	g, err := NewGrid(7, 5)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	for x := 1; x <= 5; x++ {
		g.Set(x, 1, Open)
	}
	g.Set(3, 2, Open)
	g.Set(3, 3, Open)
	return g
}

// TestDeadEnds verifies dead-end detection on a hand-built grid
func TestDeadEnds(t *testing.T) {
	g := corridor(t)

	want := map[Point]bool{{X: 1, Y: 1}: true, {X: 5, Y: 1}: true, {X: 3, Y: 3}: true}
	got := DeadEnds(g)
	if len(got) != len(want) {
		t.Fatalf("Expected %d dead ends, got %d (%v)", len(want), len(got), got)
	}
	for _, p := range got {
		if !want[p] {
			t.Errorf("Unexpected dead end at %v", p)
		}
	}
	if CountDeadEnds(g) != len(want) {
		t.Errorf("CountDeadEnds disagrees with DeadEnds")
	}

	if IsDeadEnd(g, 3, 1) {
		t.Error("junction (3,1) is not a dead end")
	}
	if IsDeadEnd(g, 0, 1) {
		t.Error("border cell can never be a dead end")
	}
}

// TestShapeZeroRatioIsNoop verifies hard difficulty leaves the maze untouched
func TestShapeZeroRatioIsNoop(t *testing.T) {
	g, _ := Generate(21, 21, rand.New(rand.NewSource(3)))
	before := g.Clone()

	if n := Shape(g, Hard.Ratio(), rand.New(rand.NewSource(3))); n != 0 {
		t.Errorf("Expected 0 walls opened, got %d", n)
	}
	a, b := before.Bits(), g.Bits()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("cell %d changed", i)
		}
	}
}

// TestShapeMonotonicity verifies shaping only opens cells, bounded by the
// dead-end target, and never disconnects anything
func TestShapeMonotonicity(t *testing.T) {
	for _, ratio := range []float64{0.2, 0.5, 1.0} {
		for seed := int64(1); seed <= 10; seed++ {
			rng := rand.New(rand.NewSource(seed))
			g, _ := Generate(31, 21, rng)
			before := g.Clone()
			deadEnds := CountDeadEnds(before)
			target := int(float64(deadEnds) * ratio)
			reachBefore := NewDistanceField(before, FallbackSpawn)

			opened := Shape(g, ratio, rng)
			if opened > target {
				t.Errorf("ratio %.1f seed %d: opened %d walls, target was %d", ratio, seed, opened, target)
			}
			if g.OpenCount()-before.OpenCount() != opened {
				t.Errorf("ratio %.1f seed %d: open count grew by %d, reported %d",
					ratio, seed, g.OpenCount()-before.OpenCount(), opened)
			}

			reachAfter := NewDistanceField(g, FallbackSpawn)
			for y := 0; y < g.Height(); y++ {
				for x := 0; x < g.Width(); x++ {
					if before.IsOpen(x, y) && !g.IsOpen(x, y) {
						t.Fatalf("cell (%d,%d) was closed by shaping", x, y)
					}
					if reachBefore.At(x, y) != Unreachable && reachAfter.At(x, y) == Unreachable {
						t.Fatalf("cell (%d,%d) became unreachable", x, y)
					}
					if g.IsBorder(x, y) && g.IsOpen(x, y) {
						t.Fatalf("border cell (%d,%d) was opened", x, y)
					}
				}
			}
		}
	}
}

// TestShapeWithoutInteriorWalls verifies dead ends that only touch the frame are skipped
func TestShapeWithoutInteriorWalls(t *testing.T) {
	g, _ := Generate(5, 3, rand.New(rand.NewSource(1)))
	if CountDeadEnds(g) != 2 {
		t.Fatalf("Expected both rooms of a 5x3 maze to be dead ends, got %d", CountDeadEnds(g))
	}
	if n := Shape(g, 1, rand.New(rand.NewSource(1))); n != 0 {
		t.Errorf("Expected nothing to open, got %d", n)
	}
}

// TestShapeEndToEndEasy runs generate → shape on the default arena at easy
// difficulty and checks the dead-end count roughly halves
func TestShapeEndToEndEasy(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g, err := Generate(41, 31, rng)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		before := CountDeadEnds(g)
		target := int(float64(before) * Easy.Ratio())

		Shape(g, Easy.Ratio(), rng)
		after := CountDeadEnds(g)

		// Each opened wall removes the picked dead end and at most one neighbor.
		// A pick can only miss if an earlier opening already removed it.
		maxAfter := before - (target+1)/2
		minAfter := before - 2*target
		if after > maxAfter || after < minAfter {
			t.Errorf("seed %d: dead ends %d -> %d, expected within [%d, %d]", seed, before, after, minAfter, maxAfter)
		}
		if !Describe(g).Connected {
			t.Errorf("seed %d: shaped maze is disconnected", seed)
		}
	}
}

// TestShapeClampsRatio verifies ratios above 1 behave like 1
func TestShapeClampsRatio(t *testing.T) {
	a, _ := Generate(21, 21, rand.New(rand.NewSource(9)))
	b := a.Clone()
	na := Shape(a, 1, rand.New(rand.NewSource(9)))
	nb := Shape(b, 5, rand.New(rand.NewSource(9)))
	if na != nb {
		t.Errorf("Expected ratio 5 to clamp to 1: %d vs %d", na, nb)
	}
}
