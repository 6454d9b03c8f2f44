package maze

import (
	"fmt"
	"math/rand"
	"strings"
)

// Difficulty selects how many dead ends get looped away after generation.
// The numeric value is the cyclic round index.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// difficultyCount is the length of the difficulty cycle.
const difficultyCount = 3

// String returns the lowercase wire name.
func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

// Ratio is the share of dead ends Shape removes at this difficulty.
func (d Difficulty) Ratio() float64 {
	switch d {
	case Easy:
		return 0.5
	case Medium:
		return 0.2
	default:
		return 0
	}
}

// Next returns the following difficulty in the easy → medium → hard cycle.
func (d Difficulty) Next() Difficulty {
	return Difficulty((int(d) + 1) % difficultyCount)
}

// ParseDifficulty accepts easy, medium or hard in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return Medium, fmt.Errorf("unknown difficulty %q", s)
}

// MarshalText encodes the difficulty by name in JSON and YAML.
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a difficulty name.
func (d *Difficulty) UnmarshalText(b []byte) error {
	v, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Build generates a maze and shapes it for the given difficulty.
func Build(width, height int, d Difficulty, rng *rand.Rand) (*Grid, error) {
	g, err := Generate(width, height, rng)
	if err != nil {
		return nil, err
	}
	Shape(g, d.Ratio(), rng)
	return g, nil
}
