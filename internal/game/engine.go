package game

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mazewars/internal/maze"
)

// Sink receives the outbound events of each tick, in order. The transport
// implements it.
type Sink interface {
	Deliver(out []Outbound)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(out []Outbound)

// Deliver calls f(out).
func (f SinkFunc) Deliver(out []Outbound) { f(out) }

// EngineConfig configures NewEngine.
type EngineConfig struct {
	TickRate int
	World    WorldConfig
}

// Engine owns the World and drives Tick from a ticker. Inbound messages are
// queued by the transport and applied as one batch at the start of the next
// tick.
type Engine struct {
	mu    sync.Mutex
	world *World

	pendingMu sync.Mutex
	pending   []Inbound

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}

	tickCount uint64
	lastTick  time.Time
	carry     float64 // fractional seconds not yet handed to Tick

	roundID   string
	sink      Sink
	snapshots SnapshotStore
	eventLog  *EventLog
	logger    *zap.Logger

	// Event callbacks, invoked on the tick goroutine.
	OnTick       func(d time.Duration, players int)
	OnTransition func(r Round)
}

// NewEngine builds the world and an event log that is not yet started.
func NewEngine(cfg EngineConfig, sink Sink, logger *zap.Logger) (*Engine, error) {
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = SinkFunc(func([]Outbound) {})
	}

	world, err := NewWorld(cfg.World)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		world:    world,
		tickRate: cfg.TickRate,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		roundID:  uuid.NewString(),
		sink:     sink,
		eventLog: NewEventLog(logger),
		logger:   logger.Named("engine"),
	}
	world.OnRegenerate = e.mazeGenerated
	e.logMaze(world.Grid, world.Round.Difficulty)
	e.snapshots.Publish(world, 0, e.roundID)

	return e, nil
}

// Start begins the game loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.lastTick = time.Now()
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))

	go func() {
		defer close(e.done)
		for {
			select {
			case now := <-e.ticker.C:
				e.tick(now)
			case <-e.stopChan:
				return
			}
		}
	}()

	e.logger.Info("engine started",
		zap.Int("tick_rate", e.tickRate),
		zap.String("round_id", e.roundID))
}

// Stop halts the game loop and waits for the current tick to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	e.mu.Unlock()

	<-e.done
	e.logger.Info("engine stopped", zap.Uint64("ticks", e.tickCount))
}

// Enqueue queues an inbound message for the next tick. Safe for concurrent use.
func (e *Engine) Enqueue(in Inbound) {
	e.pendingMu.Lock()
	e.pending = append(e.pending, in)
	e.pendingMu.Unlock()
}

// tick converts wall-clock time into whole seconds and runs one step.
func (e *Engine) tick(now time.Time) {
	elapsed := now.Sub(e.lastTick)
	e.lastTick = now
	e.Step(e.wholeSeconds(elapsed))
}

// wholeSeconds accumulates d and returns the whole seconds it completes,
// keeping the remainder for later ticks.
func (e *Engine) wholeSeconds(d time.Duration) float64 {
	if d > 0 {
		e.carry += d.Seconds()
	}
	whole := math.Floor(e.carry)
	e.carry -= whole
	return whole
}

// Step applies the pending batch and advances the round by elapsed seconds,
// then hands the resulting events to the sink.
func (e *Engine) Step(elapsed float64) []Outbound {
	e.pendingMu.Lock()
	batch := e.pending
	e.pending = nil
	e.pendingMu.Unlock()

	start := time.Now()

	e.mu.Lock()
	e.tickCount++
	before := e.world.Round
	joined := e.newHellos(batch)

	out := Tick(e.world, elapsed, batch)

	e.recordMembership(batch, joined)
	after := e.world.Round
	transitioned := before.Phase != after.Phase
	if transitioned {
		e.eventLog.EmitSimple(EventTypeRound, e.tickCount, e.roundID, 0, RoundPayload{
			Phase:      after.Phase,
			Difficulty: after.Difficulty,
			Remaining:  after.Remaining,
			Players:    len(e.world.Players),
		})
		e.logger.Info("round transition",
			zap.Stringer("from", before.Phase),
			zap.Stringer("to", after.Phase),
			zap.Stringer("difficulty", after.Difficulty),
			zap.Int("players", len(e.world.Players)))
	}
	players := len(e.world.Players)
	e.snapshots.Publish(e.world, e.tickCount, e.roundID)
	e.mu.Unlock()

	if len(out) > 0 {
		e.sink.Deliver(out)
	}

	if transitioned && e.OnTransition != nil {
		e.OnTransition(after)
	}
	if e.OnTick != nil {
		e.OnTick(time.Since(start), players)
	}
	return out
}

// newHellos returns the names carried by Hellos from clients that have no
// player yet. Later Hellos in the same batch do not override the first.
func (e *Engine) newHellos(batch []Inbound) map[ClientID]string {
	var joined map[ClientID]string
	for _, in := range batch {
		h, ok := in.Msg.(Hello)
		if !ok {
			continue
		}
		if _, exists := e.world.Players[in.From]; exists {
			continue
		}
		if joined == nil {
			joined = make(map[ClientID]string)
		}
		if _, seen := joined[in.From]; !seen {
			joined[in.From] = h.Name
		}
	}
	return joined
}

func (e *Engine) recordMembership(batch []Inbound, joined map[ClientID]string) {
	for id, name := range joined {
		p, ok := e.world.Players[id]
		if !ok {
			continue
		}
		e.eventLog.EmitSimple(EventTypePlayerJoin, e.tickCount, e.roundID, id, PlayerJoinPayload{
			PlayerID: id,
			Name:     name,
			SpawnX:   p.X,
			SpawnY:   p.Y,
		})
		e.logger.Debug("player joined", zap.Uint64("client_id", uint64(id)), zap.String("name", name))
	}
	for _, in := range batch {
		if _, ok := in.Msg.(Disconnect); !ok {
			continue
		}
		if _, still := e.world.Players[in.From]; still {
			continue
		}
		e.eventLog.EmitSimple(EventTypePlayerLeave, e.tickCount, e.roundID, 0, PlayerLeavePayload{PlayerID: in.From})
		e.logger.Debug("player left", zap.Uint64("client_id", uint64(in.From)))
	}
}

// mazeGenerated runs inside Tick, under e.mu.
func (e *Engine) mazeGenerated(g *maze.Grid, d maze.Difficulty) {
	e.roundID = uuid.NewString()
	e.logMaze(g, d)
}

func (e *Engine) logMaze(g *maze.Grid, d maze.Difficulty) {
	stats := maze.Describe(g)
	e.eventLog.EmitSimple(EventTypeMaze, e.tickCount, e.roundID, 0, MazePayload{Difficulty: d, Stats: stats})
	e.logger.Info("maze generated",
		zap.String("round_id", e.roundID),
		zap.Stringer("difficulty", d),
		zap.Int("width", stats.Width),
		zap.Int("height", stats.Height),
		zap.Int("open_cells", stats.OpenCells),
		zap.Int("dead_ends", stats.DeadEnds),
		zap.Int("longest_path", stats.LongestPath),
		zap.Bool("connected", stats.Connected))
}

// Snapshot returns the state published by the last tick.
func (e *Engine) Snapshot() *GameSnapshot {
	return e.snapshots.Latest()
}

// PlayerCount returns the number of registered players.
func (e *Engine) PlayerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.world.Players)
}

// StartEventLog starts the event log writing into dir and records the
// current maze as its first entry.
func (e *Engine) StartEventLog(dir string) error {
	if err := e.eventLog.Start(dir); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventLog.EmitSimple(EventTypeMaze, e.tickCount, e.roundID, 0, MazePayload{
		Difficulty: e.world.Round.Difficulty,
		Stats:      maze.Describe(e.world.Grid),
	})
	return nil
}

// StopEventLog flushes and closes the event log.
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log counters.
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// TickRate returns the configured ticks per second.
func (e *Engine) TickRate() int {
	return e.tickRate
}
