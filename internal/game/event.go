package game

import (
	"encoding/json"
	"time"

	"mazewars/internal/maze"
)

// EventType classifies event log records.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypeRound
	EventTypeMaze
)

// EventVersion is bumped when the record layout changes.
const EventVersion uint8 = 1

// Event is one record in the event log.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	TickNum   uint64          `json:"tickNum"`
	RoundID   string          `json:"roundId"`
	PlayerID  ClientID        `json:"playerId,omitempty"` // rate limiting key, 0 for world events
	Payload   json.RawMessage `json:"payload"`
}

func (t EventType) String() string {
	switch t {
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypeRound:
		return "round"
	case EventTypeMaze:
		return "maze"
	default:
		return "unknown"
	}
}

// MarshalText writes the type by name so log files stay readable.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (t *EventType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "player_join":
		*t = EventTypePlayerJoin
	case "player_leave":
		*t = EventTypePlayerLeave
	case "round":
		*t = EventTypeRound
	case "maze":
		*t = EventTypeMaze
	default:
		*t = EventTypeUnknown
	}
	return nil
}

// PlayerJoinPayload records a player's first Hello.
type PlayerJoinPayload struct {
	PlayerID ClientID `json:"playerId"`
	Name     string   `json:"name"`
	SpawnX   int      `json:"spawnX"`
	SpawnY   int      `json:"spawnY"`
}

// PlayerLeavePayload records a disconnect.
type PlayerLeavePayload struct {
	PlayerID ClientID `json:"playerId"`
}

// RoundPayload records a phase transition.
type RoundPayload struct {
	Phase      Phase           `json:"phase"`
	Difficulty maze.Difficulty `json:"difficulty"`
	Remaining  int             `json:"remaining"`
	Players    int             `json:"players"`
}

// MazePayload records a freshly generated maze.
type MazePayload struct {
	Difficulty maze.Difficulty `json:"difficulty"`
	Stats      maze.Stats      `json:"stats"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, roundID string, playerID ClientID, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		RoundID:   roundID,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
