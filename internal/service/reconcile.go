package service

import "github.com/unklstewy/opensky-utah/pkg/opensky"

// reconcile builds the collection that replaces prev. Records are taken
// whole from next; only DetailsVisible is carried over, matched by ICAO24.
// A repeated ICAO24 in next keeps the slot of its first occurrence and the
// contents of its last.
func reconcile(prev, next []opensky.AircraftState) []opensky.AircraftState {
	visible := make(map[string]bool, len(prev))
	for _, p := range prev {
		if p.DetailsVisible {
			visible[p.ICAO24] = true
		}
	}

	out := make([]opensky.AircraftState, 0, len(next))
	index := make(map[string]int, len(next))
	for _, n := range next {
		n.DetailsVisible = visible[n.ICAO24]
		if i, dup := index[n.ICAO24]; dup {
			out[i] = n
			continue
		}
		index[n.ICAO24] = len(out)
		out = append(out, n)
	}
	return out
}
