package game

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"mazewars/internal/maze"
)

// ClientID is the identity the transport hands us for a connection.
// It is trusted as given.
type ClientID uint64

// Player is a client's avatar on the grid.
type Player struct {
	ID ClientID `json:"id"`
	X  int      `json:"x"`
	Y  int      `json:"y"`
}

// Position returns the player's cell.
func (p *Player) Position() maze.Point {
	return maze.Point{X: p.X, Y: p.Y}
}

// Phase is the round state.
type Phase uint8

const (
	Lobby Phase = iota
	InRound
	Intermission
)

func (p Phase) String() string {
	switch p {
	case Lobby:
		return "Lobby"
	case InRound:
		return "InRound"
	case Intermission:
		return "Intermission"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the phase by name for the Round event.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// RoundDurations holds the length of each phase in whole seconds.
type RoundDurations struct {
	Lobby        int
	Round        int
	Intermission int
}

// DefaultRoundDurations returns 5s lobby, 30s round, 5s intermission.
func DefaultRoundDurations() RoundDurations {
	return RoundDurations{Lobby: 5, Round: 30, Intermission: 5}
}

// For returns the duration of phase p.
func (d RoundDurations) For(p Phase) int {
	switch p {
	case InRound:
		return d.Round
	case Intermission:
		return d.Intermission
	default:
		return d.Lobby
	}
}

// Round is the timed state machine driving the maze rotation.
type Round struct {
	Phase      Phase
	Remaining  int
	Difficulty maze.Difficulty
}

// WorldConfig configures NewWorld.
type WorldConfig struct {
	Width      int
	Height     int
	Difficulty maze.Difficulty
	Durations  RoundDurations
	// Seed for the world RNG. Zero picks a time-based seed.
	Seed int64
}

// World is the single mutable aggregate the tick function operates on.
// It is not safe for concurrent use; Engine serializes access to it.
type World struct {
	Grid    *maze.Grid
	Players map[ClientID]*Player
	Round   Round

	durations RoundDurations
	rng       *rand.Rand

	// Called after a regeneration with the new grid and its difficulty. Optional.
	OnRegenerate func(g *maze.Grid, d maze.Difficulty)
}

// NewWorld builds the initial maze at the configured difficulty and starts
// in the lobby.
func NewWorld(cfg WorldConfig) (*World, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	grid, err := maze.Build(cfg.Width, cfg.Height, cfg.Difficulty, rng)
	if err != nil {
		return nil, fmt.Errorf("build initial maze: %w", err)
	}

	durations := cfg.Durations
	if durations == (RoundDurations{}) {
		durations = DefaultRoundDurations()
	}

	return &World{
		Grid:    grid,
		Players: make(map[ClientID]*Player),
		Round: Round{
			Phase:      Lobby,
			Remaining:  durations.Lobby,
			Difficulty: cfg.Difficulty,
		},
		durations: durations,
		rng:       rng,
	}, nil
}

// SortedPlayers returns a copy of all players ordered by id.
func (w *World) SortedPlayers() []Player {
	out := make([]Player, 0, len(w.Players))
	for _, p := range w.Players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
