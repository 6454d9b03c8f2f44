package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mazewars/internal/game"
	"mazewars/internal/maze"
)

// stateResponse is the body of GET /api/state.
type stateResponse struct {
	Tick        uint64           `json:"tick"`
	RoundID     string           `json:"roundId"`
	Round       game.RoundUpdate `json:"round"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	PlayerCount int              `json:"playerCount"`
	Players     []game.Player    `json:"players"`
	Clients     int              `json:"clients"`
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	resp := stateResponse{
		Tick:        snap.TickNumber,
		RoundID:     snap.RoundID,
		Round:       snap.Round,
		Width:       snap.Grid.Width(),
		Height:      snap.Grid.Height(),
		PlayerCount: len(snap.Players),
		Players:     snap.Players,
	}
	if h.clients != nil {
		resp.Clients = h.clients.ClientCount()
	}
	writeJSON(w, resp)
}

func (h *routerHandlers) handleGetMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, game.MapOf(h.engine.Snapshot().Grid))
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, maze.Describe(h.engine.Snapshot().Grid))
}

// handleMapPNG renders the current maze with players as dots.
// ?cell=N sets the pixel size of one cell (1..32).
func (h *routerHandlers) handleMapPNG(w http.ResponseWriter, r *http.Request) {
	opts := maze.DefaultRenderOptions()
	if v := r.URL.Query().Get("cell"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > 32 {
			writeError(w, "cell must be an integer between 1 and 32", http.StatusBadRequest)
			return
		}
		opts.CellSize = size
	}

	img, err := h.renders.Render(h.engine.Snapshot(), opts)
	if err != nil {
		writeError(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"instance": h.instanceID,
		"tick":     h.engine.Snapshot().TickNumber,
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
