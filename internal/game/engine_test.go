package game

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"mazewars/internal/maze"
)

type recordingSink struct {
	mu     sync.Mutex
	ticks  int
	events []Outbound
}

func (s *recordingSink) Deliver(out []Outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	s.events = append(s.events, out...)
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return events(s.events)
}

func newTestEngine(t *testing.T, sink Sink) *Engine {
	t.Helper()
	e, err := NewEngine(EngineConfig{
		TickRate: 20,
		World:    WorldConfig{Width: 21, Height: 15, Difficulty: maze.Medium, Seed: 7},
	}, sink, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

// TestNewEngine verifies engine creation and argument validation
func TestNewEngine(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EngineConfig
		wantErr bool
	}{
		{"standard 20 TPS", EngineConfig{TickRate: 20, World: WorldConfig{Width: 41, Height: 31}}, false},
		{"high 60 TPS", EngineConfig{TickRate: 60, World: WorldConfig{Width: 11, Height: 11}}, false},
		{"zero tick rate", EngineConfig{TickRate: 0, World: WorldConfig{Width: 11, Height: 11}}, true},
		{"even width", EngineConfig{TickRate: 20, World: WorldConfig{Width: 10, Height: 11}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEngine(tt.cfg, nil, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEngine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && e.Snapshot() == nil {
				t.Error("Expected an initial snapshot")
			}
		})
	}
}

// TestEngineStartStop verifies engine can start and stop without panics
func TestEngineStartStop(t *testing.T) {
	engine := newTestEngine(t, nil)

	engine.Start()
	time.Sleep(100 * time.Millisecond)
	engine.Stop()

	// Should not panic on double stop
	engine.Stop()
}

// TestEngineStepDeliversBatch verifies queued messages are applied on the next step
func TestEngineStepDeliversBatch(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, sink)

	e.Enqueue(Inbound{From: 1, Msg: Hello{Name: "a"}})
	e.Enqueue(Inbound{From: 1, Msg: Input{DX: 1}})

	e.Step(0)

	names := sink.names()
	if len(names) < 4 || !equalStrings(names[:4], []string{"Welcome", "Map", "PlayerInit", "Players"}) {
		t.Fatalf("Unexpected delivered events %v", names)
	}
	if e.PlayerCount() != 1 {
		t.Errorf("Expected 1 player, got %d", e.PlayerCount())
	}

	// The batch is consumed.
	e.Step(0)
	if sink.ticks != 1 {
		t.Errorf("Expected empty steps to skip delivery, got %d deliveries", sink.ticks)
	}
}

// TestEngineWholeSeconds verifies fractional time is carried between ticks
func TestEngineWholeSeconds(t *testing.T) {
	e := newTestEngine(t, nil)

	steps := []struct {
		d    time.Duration
		want float64
	}{
		{300 * time.Millisecond, 0},
		{300 * time.Millisecond, 0},
		{300 * time.Millisecond, 0},
		{300 * time.Millisecond, 1},
		{2500 * time.Millisecond, 2},
		{-time.Second, 0},
		{400 * time.Millisecond, 1},
	}
	for i, s := range steps {
		if got := e.wholeSeconds(s.d); got != s.want {
			t.Errorf("step %d: expected %v whole seconds, got %v", i, s.want, got)
		}
	}
}

// TestEngineCallbacks verifies tick and transition hooks fire
func TestEngineCallbacks(t *testing.T) {
	e := newTestEngine(t, nil)

	var ticks int
	var transitions []Phase
	e.OnTick = func(d time.Duration, players int) { ticks++ }
	e.OnTransition = func(r Round) { transitions = append(transitions, r.Phase) }

	for i := 0; i < 5; i++ {
		e.Step(1)
	}
	if ticks != 5 {
		t.Errorf("Expected 5 tick callbacks, got %d", ticks)
	}
	if len(transitions) != 1 || transitions[0] != InRound {
		t.Errorf("Expected one transition to InRound, got %v", transitions)
	}
}

// TestEngineSnapshot verifies readers see the state of the last step
func TestEngineSnapshot(t *testing.T) {
	e := newTestEngine(t, nil)
	first := e.Snapshot()

	e.Enqueue(Inbound{From: 3, Msg: Hello{}})
	e.Step(1)

	snap := e.Snapshot()
	if snap.Sequence <= first.Sequence {
		t.Error("snapshot sequence did not advance")
	}
	if len(snap.Players) != 1 || snap.Players[0].ID != 3 {
		t.Errorf("Expected player 3 in snapshot, got %+v", snap.Players)
	}
	if snap.Round.Remaining != 4 || snap.Round.State != Lobby {
		t.Errorf("Unexpected round in snapshot %+v", snap.Round)
	}
	if len(snap.Positions()) != 1 {
		t.Error("Positions should mirror players")
	}
	if snap.Grid.Width() != 21 || snap.RoundID == "" {
		t.Errorf("Unexpected grid or round id in snapshot")
	}
}

// TestEngineRoundIDChangesOnRegeneration verifies a new maze gets a new id
func TestEngineRoundIDChangesOnRegeneration(t *testing.T) {
	e := newTestEngine(t, nil)
	id := e.Snapshot().RoundID

	for i := 0; i < 40; i++ {
		e.Step(1)
	}
	if e.Snapshot().RoundID == id {
		t.Error("Expected a fresh round id after regeneration")
	}
}

// TestEngineConcurrentEnqueue verifies the transport can enqueue from many goroutines
func TestEngineConcurrentEnqueue(t *testing.T) {
	e := newTestEngine(t, nil)

	var wg sync.WaitGroup
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func(id ClientID) {
			defer wg.Done()
			e.Enqueue(Inbound{From: id, Msg: Hello{}})
		}(ClientID(i))
	}
	wg.Wait()
	e.Step(0)

	if e.PlayerCount() != 16 {
		t.Errorf("Expected 16 players, got %d", e.PlayerCount())
	}
}
