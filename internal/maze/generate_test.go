package maze

import (
	"errors"
	"math/rand"
	"testing"
)

// countEdges counts adjacent open pairs (each pair once).
func countEdges(g *Grid) int {
	edges := 0
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			if !g.IsOpen(x, y) {
				continue
			}
			if g.IsOpen(x+1, y) {
				edges++
			}
			if g.IsOpen(x, y+1) {
				edges++
			}
		}
	}
	return edges
}

// TestGeneratePerfectMaze verifies the spanning-tree property across sizes and seeds
func TestGeneratePerfectMaze(t *testing.T) {
	sizes := []struct {
		name          string
		width, height int
	}{
		{"smallest", 3, 3},
		{"single row of rooms", 9, 3},
		{"single column of rooms", 3, 9},
		{"square", 11, 11},
		{"default arena", 41, 31},
	}

	for _, sz := range sizes {
		t.Run(sz.name, func(t *testing.T) {
			for seed := int64(1); seed <= 5; seed++ {
				g, err := Generate(sz.width, sz.height, rand.New(rand.NewSource(seed)))
				if err != nil {
					t.Fatalf("Generate(%d, %d) failed: %v", sz.width, sz.height, err)
				}

				rooms := Rooms(sz.width, sz.height)
				open := g.OpenCount()
				knocked := open - rooms
				if knocked != rooms-1 {
					t.Errorf("seed %d: expected %d walls knocked down, got %d", seed, rooms-1, knocked)
				}

				for y := 1; y < sz.height; y += 2 {
					for x := 1; x < sz.width; x += 2 {
						if !g.IsOpen(x, y) {
							t.Fatalf("seed %d: room (%d,%d) was never carved", seed, x, y)
						}
					}
				}

				field := NewDistanceField(g, FallbackSpawn)
				if field.ReachableCount() != open {
					t.Errorf("seed %d: %d of %d open cells reachable", seed, field.ReachableCount(), open)
				}

				// A connected graph with V-1 edges has no cycles.
				if edges := countEdges(g); edges != open-1 {
					t.Errorf("seed %d: expected %d edges for a tree, got %d", seed, open-1, edges)
				}
			}
		})
	}
}

// TestGenerateBorderIsWall verifies the outer frame is never carved
func TestGenerateBorderIsWall(t *testing.T) {
	g, err := Generate(41, 31, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for x := 0; x < g.Width(); x++ {
		if g.At(x, 0) != Wall || g.At(x, g.Height()-1) != Wall {
			t.Fatalf("border column %d is open", x)
		}
	}
	for y := 0; y < g.Height(); y++ {
		if g.At(0, y) != Wall || g.At(g.Width()-1, y) != Wall {
			t.Fatalf("border row %d is open", y)
		}
	}
}

// TestGenerateDeterministic verifies the same seed yields the same maze
func TestGenerateDeterministic(t *testing.T) {
	a, _ := Generate(21, 15, rand.New(rand.NewSource(42)))
	b, _ := Generate(21, 15, rand.New(rand.NewSource(42)))
	ab, bb := a.Bits(), b.Bits()
	for i := range ab {
		if ab[i] != bb[i] {
			t.Fatalf("mazes differ at index %d", i)
		}
	}
}

// TestGenerateInvalidDimensions verifies even and undersized grids are rejected
func TestGenerateInvalidDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"even width", 4, 5},
		{"even height", 5, 6},
		{"too narrow", 1, 5},
		{"too short", 5, 1},
		{"negative", -3, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.width, tt.height, nil)
			if !errors.Is(err, ErrInvalidDimensions) {
				t.Errorf("Expected ErrInvalidDimensions, got %v", err)
			}
		})
	}
}

// TestGenerateNilRNG verifies a nil source still produces a valid maze
func TestGenerateNilRNG(t *testing.T) {
	g, err := Generate(7, 7, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !g.IsOpen(FallbackSpawn.X, FallbackSpawn.Y) {
		t.Error("fallback spawn should always be open")
	}
}

func BenchmarkGenerate41x31(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < b.N; i++ {
		_, _ = Generate(41, 31, rng)
	}
}
