package game

// Tick runs one simulation step: every inbound message is routed in order,
// then the round clock advances by elapsed seconds. It returns the queued
// outbound events in emission order.
func Tick(w *World, elapsed float64, inbound []Inbound) []Outbound {
	var out []Outbound
	for _, in := range inbound {
		out = append(out, Route(w, in)...)
	}
	return append(out, AdvanceRound(w, elapsed)...)
}
