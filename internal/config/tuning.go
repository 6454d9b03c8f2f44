package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"mazewars/internal/maze"
)

// Tuning is the optional YAML overlay named by MAZE_TUNING. Zero values leave
// the environment-derived setting alone.
type Tuning struct {
	Maze struct {
		Width      int    `yaml:"width"`
		Height     int    `yaml:"height"`
		Difficulty string `yaml:"difficulty"`
	} `yaml:"maze"`

	Rounds struct {
		LobbySeconds        int `yaml:"lobby_seconds"`
		RoundSeconds        int `yaml:"round_seconds"`
		IntermissionSeconds int `yaml:"intermission_seconds"`
	} `yaml:"rounds"`

	Server struct {
		MaxClients    int     `yaml:"max_clients"`
		TickRate      int     `yaml:"tick_rate"`
		MaxConnsPerIP int     `yaml:"max_conns_per_ip"`
		InboundPerSec float64 `yaml:"inbound_per_sec"`
		InboundBurst  int     `yaml:"inbound_burst"`
	} `yaml:"server"`
}

// LoadTuning reads and parses a tuning file. Unknown keys are rejected so
// typos do not go unnoticed.
func LoadTuning(path string) (Tuning, error) {
	var t Tuning
	f, err := os.Open(path)
	if err != nil {
		return t, fmt.Errorf("open tuning file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if t.Maze.Difficulty != "" {
		if _, err := maze.ParseDifficulty(t.Maze.Difficulty); err != nil {
			return t, fmt.Errorf("%s: %w", path, err)
		}
	}
	return t, nil
}

// Apply overlays the non-zero settings onto cfg.
func (t Tuning) Apply(cfg *AppConfig) {
	setInt(&cfg.Maze.Width, t.Maze.Width)
	setInt(&cfg.Maze.Height, t.Maze.Height)
	if t.Maze.Difficulty != "" {
		cfg.Maze.Difficulty, _ = maze.ParseDifficulty(t.Maze.Difficulty)
	}

	setInt(&cfg.Round.LobbySeconds, t.Rounds.LobbySeconds)
	setInt(&cfg.Round.RoundSeconds, t.Rounds.RoundSeconds)
	setInt(&cfg.Round.IntermissionSeconds, t.Rounds.IntermissionSeconds)

	setInt(&cfg.Server.MaxClients, t.Server.MaxClients)
	setInt(&cfg.Server.TickRate, t.Server.TickRate)
	setInt(&cfg.Server.MaxConnsPerIP, t.Server.MaxConnsPerIP)
	setInt(&cfg.Server.InboundBurst, t.Server.InboundBurst)
	if t.Server.InboundPerSec > 0 {
		cfg.Server.InboundPerSec = t.Server.InboundPerSec
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
