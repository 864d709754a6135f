package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unklstewy/opensky-utah/pkg/opensky"
)

func states(icaos ...string) []opensky.AircraftState {
	out := make([]opensky.AircraftState, len(icaos))
	for i, icao := range icaos {
		out[i] = opensky.AircraftState{ICAO24: icao, OriginCountry: "US"}
	}
	return out
}

func TestReconcileKeepsEveryDistinctRecord(t *testing.T) {
	got := reconcile(states("x", "y"), states("a", "b", "c"))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, icaos(got))
}

func TestReconcileCarriesFlag(t *testing.T) {
	prev := states("a", "b")
	prev[0].DetailsVisible = true

	got := reconcile(prev, states("b", "a", "c"))
	assert.Equal(t, []bool{false, true, false}, []bool{got[0].DetailsVisible, got[1].DetailsVisible, got[2].DetailsVisible})
}

func TestReconcileDuplicateLastWins(t *testing.T) {
	next := states("a", "b", "a")
	next[0].OriginCountry = "first"
	next[2].OriginCountry = "last"

	got := reconcile(nil, next)
	assert.Equal(t, []string{"a", "b"}, icaos(got))
	assert.Equal(t, "last", got[0].OriginCountry)
}

func TestReconcileDoesNotMutateInput(t *testing.T) {
	prev := states("a")
	prev[0].DetailsVisible = true
	next := states("a")

	_ = reconcile(prev, next)
	assert.False(t, next[0].DetailsVisible)
}

func TestDataSourceString(t *testing.T) {
	assert.Equal(t, "none", SourceNone.String())
	assert.Equal(t, "sample", SourceSample.String())
	assert.Equal(t, "cache", SourceCache.String())
	assert.Equal(t, "network", SourceNetwork.String())

	text, err := SourceNetwork.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "network", string(text))
}
