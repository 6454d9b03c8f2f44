package game

import (
	"testing"

	"mazewars/internal/maze"
)

// TestHelloNewPlayer verifies registration and the resync sequence
func TestHelloNewPlayer(t *testing.T) {
	w := worldOn(openGrid(t, 7, 7))

	out := Route(w, Inbound{From: 9, Msg: Hello{Name: "Ada"}})

	if !equalStrings(events(out), []string{"Welcome", "Map", "PlayerInit", "Players"}) {
		t.Fatalf("Unexpected events %v", events(out))
	}
	for _, o := range out[:3] {
		if o.Target != To(9) {
			t.Errorf("%s should go to the sender only, got %+v", o.Msg.Event(), o.Target)
		}
	}
	if out[3].Target != Everyone {
		t.Error("Players should be broadcast")
	}

	welcome := out[0].Msg.(Welcome)
	if welcome.Message != "Welcome, Ada!" || welcome.ClientID != 9 {
		t.Errorf("Unexpected welcome %+v", welcome)
	}

	p, ok := w.Players[9]
	if !ok {
		t.Fatal("player was not created")
	}
	if p.Position() != (maze.Point{X: 3, Y: 3}) {
		t.Errorf("Expected spawn at center, got %v", p.Position())
	}
	pi := out[2].Msg.(PlayerInit)
	if pi.ID != 9 || pi.X != p.X || pi.Y != p.Y {
		t.Errorf("PlayerInit %+v does not match player %+v", pi, p)
	}
}

// TestHelloIdempotent verifies a repeated Hello resends everything but keeps one player
func TestHelloIdempotent(t *testing.T) {
	w := worldOn(openGrid(t, 7, 7))

	first := Route(w, Inbound{From: 1, Msg: Hello{Name: "A"}})
	pos := w.Players[1].Position()
	second := Route(w, Inbound{From: 1, Msg: Hello{Name: "A"}})

	if len(w.Players) != 1 {
		t.Fatalf("Expected one player, got %d", len(w.Players))
	}
	if w.Players[1].Position() != pos {
		t.Error("repeated Hello moved the player")
	}
	if !equalStrings(events(first), events(second)) || len(second) != 4 {
		t.Errorf("Expected two identical resend sequences, got %v and %v", events(first), events(second))
	}
}

// TestHelloSpawnsDistinct verifies concurrent joins never share a cell
func TestHelloSpawnsDistinct(t *testing.T) {
	w := newTestWorld(t, maze.Medium, 8)
	for i := 1; i <= 16; i++ {
		Route(w, Inbound{From: ClientID(i), Msg: Hello{Name: "p"}})
	}
	if len(w.Players) != 16 {
		t.Fatalf("Expected 16 players, got %d", len(w.Players))
	}
	assertDistinctOpen(t, w)
}

// TestInput covers movement validation
func TestInput(t *testing.T) {
	// #######
	// #.....#
	// #.###.#
	// #.....#
	// #######
	grid := openGrid(t, 7, 5)
	grid.Set(2, 2, maze.Wall)
	grid.Set(3, 2, maze.Wall)
	grid.Set(4, 2, maze.Wall)

	tests := []struct {
		name    string
		from    maze.Point
		dx, dy  int
		want    maze.Point
		emitted bool
	}{
		{"step right", maze.Point{X: 1, Y: 1}, 1, 0, maze.Point{X: 2, Y: 1}, true},
		{"step down", maze.Point{X: 1, Y: 1}, 0, 1, maze.Point{X: 1, Y: 2}, true},
		{"into wall", maze.Point{X: 2, Y: 1}, 0, 1, maze.Point{X: 2, Y: 1}, false},
		{"into border", maze.Point{X: 1, Y: 1}, 0, -1, maze.Point{X: 1, Y: 1}, false},
		{"clamped large delta", maze.Point{X: 1, Y: 1}, 5, 0, maze.Point{X: 2, Y: 1}, true},
		{"clamped negative delta", maze.Point{X: 5, Y: 3}, -9, 0, maze.Point{X: 4, Y: 3}, true},
		{"diagonal", maze.Point{X: 1, Y: 1}, 1, 1, maze.Point{X: 1, Y: 1}, false},
		{"diagonal open", maze.Point{X: 4, Y: 1}, 1, 1, maze.Point{X: 5, Y: 2}, true},
		{"zero delta still broadcasts", maze.Point{X: 1, Y: 1}, 0, 0, maze.Point{X: 1, Y: 1}, true},
		{"off the far edge", maze.Point{X: 5, Y: 3}, 1, 1, maze.Point{X: 5, Y: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := worldOn(grid)
			w.Players[1] = &Player{ID: 1, X: tt.from.X, Y: tt.from.Y}

			out := Route(w, Inbound{From: 1, Msg: Input{DX: tt.dx, DY: tt.dy}})

			if got := w.Players[1].Position(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if tt.emitted {
				if !equalStrings(events(out), []string{"Players"}) || out[0].Target != Everyone {
					t.Errorf("Expected a Players broadcast, got %v", events(out))
				}
			} else if len(out) != 0 {
				t.Errorf("Expected nothing, got %v", events(out))
			}
		})
	}
}

// TestInputNegativeCoordinates verifies candidates are clamped at zero
func TestInputNegativeCoordinates(t *testing.T) {
	grid := openGrid(t, 5, 5)
	grid.Set(0, 2, maze.Open)
	w := worldOn(grid)
	w.Players[1] = &Player{ID: 1, X: 0, Y: 2}

	// x-1 clamps to 0 and y+1 lands on the border wall below.
	if out := Route(w, Inbound{From: 1, Msg: Input{DX: -1, DY: 1}}); len(out) != 0 {
		t.Errorf("Expected drop, got %v", events(out))
	}
	// x-1 clamps to 0, a zero move onto the opened border cell.
	if out := Route(w, Inbound{From: 1, Msg: Input{DX: -1}}); len(out) != 1 {
		t.Errorf("Expected a broadcast, got %v", events(out))
	}
	if w.Players[1].Position() != (maze.Point{X: 0, Y: 2}) {
		t.Errorf("Expected player to stay at (0,2), got %v", w.Players[1].Position())
	}
}

// TestInputUnknownClient verifies input before Hello is ignored
func TestInputUnknownClient(t *testing.T) {
	w := worldOn(openGrid(t, 5, 5))
	if out := Route(w, Inbound{From: 4, Msg: Input{DX: 1}}); out != nil {
		t.Errorf("Expected nothing, got %v", events(out))
	}
	if len(w.Players) != 0 {
		t.Error("input must not create players")
	}
}

// TestDisconnect verifies removal and the follow-up broadcast
func TestDisconnect(t *testing.T) {
	w := worldOn(openGrid(t, 5, 5))
	Route(w, Inbound{From: 1, Msg: Hello{Name: "a"}})
	Route(w, Inbound{From: 2, Msg: Hello{Name: "b"}})

	out := Route(w, Inbound{From: 1, Msg: Disconnect{}})
	if !equalStrings(events(out), []string{"Players"}) {
		t.Fatalf("Expected Players broadcast, got %v", events(out))
	}
	list := out[0].Msg.(PlayerList)
	if len(list) != 1 || list[0].ID != 2 {
		t.Errorf("Expected only player 2 left, got %+v", list)
	}

	if out := Route(w, Inbound{From: 1, Msg: Disconnect{}}); out != nil {
		t.Errorf("Expected nothing for an unknown client, got %v", events(out))
	}
}

// TestPlayersSortedByID verifies the broadcast order
func TestPlayersSortedByID(t *testing.T) {
	w := worldOn(openGrid(t, 9, 9))
	for _, id := range []ClientID{5, 3, 8, 1} {
		Route(w, Inbound{From: id, Msg: Hello{}})
	}
	out := Route(w, Inbound{From: 2, Msg: Hello{}})
	list := out[3].Msg.(PlayerList)
	for i := 1; i < len(list); i++ {
		if list[i-1].ID >= list[i].ID {
			t.Fatalf("players not sorted: %+v", list)
		}
	}
}
