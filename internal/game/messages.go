package game

import "mazewars/internal/maze"

// InboundMessage is one of Hello, Input or Disconnect.
type InboundMessage interface {
	inbound()
}

// Hello registers the sender (first time) and requests a full resync.
type Hello struct {
	Name string
}

// Input asks to move the sender's player by one step.
type Input struct {
	DX int
	DY int
}

// Disconnect is fed by the transport when a connection closes.
type Disconnect struct{}

func (Hello) inbound()      {}
func (Input) inbound()      {}
func (Disconnect) inbound() {}

// Inbound is a message tagged with the connection it arrived on.
type Inbound struct {
	From ClientID
	Msg  InboundMessage
}

// Target addresses an outbound message to one client or to everyone.
type Target struct {
	Client    ClientID
	Broadcast bool
}

// To targets a single client.
func To(id ClientID) Target {
	return Target{Client: id}
}

// Everyone targets all connected clients.
var Everyone = Target{Broadcast: true}

// OutboundMessage is the body of a server event.
type OutboundMessage interface {
	// Event is the wire event name.
	Event() string
}

// Welcome acknowledges a Hello.
type Welcome struct {
	Message  string   `json:"message"`
	ClientID ClientID `json:"client_id"`
}

// MapSnapshot carries the full grid, row-major, 0 open and 1 wall.
type MapSnapshot struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Cells  []int `json:"cells"`
}

// PlayerInit tells a client where its own player stands.
type PlayerInit struct {
	ID ClientID `json:"id"`
	X  int      `json:"x"`
	Y  int      `json:"y"`
}

// PlayerList is every player sorted by id.
type PlayerList []Player

// RoundUpdate announces the current round state.
type RoundUpdate struct {
	State      Phase           `json:"state"`
	Difficulty maze.Difficulty `json:"difficulty"`
	Remaining  int             `json:"remaining"`
}

func (Welcome) Event() string     { return "Welcome" }
func (MapSnapshot) Event() string { return "Map" }
func (PlayerInit) Event() string  { return "PlayerInit" }
func (PlayerList) Event() string  { return "Players" }
func (RoundUpdate) Event() string { return "Round" }

// Outbound is a server event and who should receive it.
type Outbound struct {
	Target Target
	Msg    OutboundMessage
}

func mapSnapshot(g *maze.Grid) MapSnapshot {
	return MapSnapshot{Width: g.Width(), Height: g.Height(), Cells: g.Bits()}
}

func playersBroadcast(w *World) Outbound {
	return Outbound{Target: Everyone, Msg: PlayerList(w.SortedPlayers())}
}

func roundBroadcast(r Round) Outbound {
	return Outbound{Target: Everyone, Msg: RoundUpdate{
		State:      r.Phase,
		Difficulty: r.Difficulty,
		Remaining:  r.Remaining,
	}}
}

// MapOf returns the Map body for a grid.
func MapOf(g *maze.Grid) MapSnapshot {
	return mapSnapshot(g)
}

// RoundOf returns the Round body for the world's current state.
func RoundOf(w *World) RoundUpdate {
	return roundBroadcast(w.Round).Msg.(RoundUpdate)
}
