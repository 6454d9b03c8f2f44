package game

import (
	"fmt"

	"mazewars/internal/maze"
)

// Route applies one inbound message to the world and returns the events it
// produces. Invalid moves and input from unknown clients produce nothing.
func Route(w *World, in Inbound) []Outbound {
	switch msg := in.Msg.(type) {
	case Hello:
		return routeHello(w, in.From, msg)
	case Input:
		return routeInput(w, in.From, msg)
	case Disconnect:
		if _, ok := w.Players[in.From]; !ok {
			return nil
		}
		delete(w.Players, in.From)
		return []Outbound{playersBroadcast(w)}
	default:
		return nil
	}
}

func routeHello(w *World, from ClientID, msg Hello) []Outbound {
	p, ok := w.Players[from]
	if !ok {
		spawn := FindSingle(w)
		p = &Player{ID: from, X: spawn.X, Y: spawn.Y}
		w.Players[from] = p
	}

	direct := To(from)
	return []Outbound{
		{Target: direct, Msg: Welcome{Message: fmt.Sprintf("Welcome, %s!", msg.Name), ClientID: from}},
		{Target: direct, Msg: mapSnapshot(w.Grid)},
		{Target: direct, Msg: PlayerInit{ID: p.ID, X: p.X, Y: p.Y}},
		playersBroadcast(w),
	}
}

func routeInput(w *World, from ClientID, msg Input) []Outbound {
	p, ok := w.Players[from]
	if !ok {
		return nil
	}

	nx := max(p.X+clampStep(msg.DX), 0)
	ny := max(p.Y+clampStep(msg.DY), 0)
	if !w.Grid.InBounds(nx, ny) {
		return nil
	}
	if cell := w.Grid.At(nx, ny); cell != maze.Open {
		return nil
	}

	p.X, p.Y = nx, ny
	return []Outbound{playersBroadcast(w)}
}

func clampStep(v int) int {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
