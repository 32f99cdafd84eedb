package pipeline_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-station-index/internal/model"
	"go-station-index/internal/pipeline"
)

func catalogWith(t *testing.T, stations ...model.Station) *pipeline.Catalog {
	t.Helper()
	cat := pipeline.NewCatalog(testBounds)
	for _, st := range stations {
		require.NoError(t, cat.Add(st))
	}
	return cat
}

// Catalog has station 72 only; one self-loop trip and one trip to the unknown
// station 99.
func TestBuildIndex_UnknownStationStillEmitted(t *testing.T) {
	cat := catalogWith(t, station(72, 40.767, -73.994, "W 52 St & 11 Ave"))
	acc := accumulate([]model.TripRecord{
		trip(1, 72, 72, 1),
		trip(2, 72, 99, 2),
	})

	index := pipeline.BuildIndex(cat, acc)
	require.Len(t, index, 2)

	e72 := index[0]
	assert.Equal(t, 72, e72.StationID)
	assert.Equal(t, 2, e72.OutgoingTrips)
	assert.Equal(t, 1, e72.IncomingTrips)
	assert.Equal(t, 3, e72.AllTrips)
	assert.Equal(t, 1, e72.DeltaTrips)
	assert.Equal(t, model.KindActive, e72.Kind)
	assert.Equal(t, "W 52 St & 11 Ave", e72.Name)

	e99 := index[1]
	assert.Equal(t, 99, e99.StationID)
	assert.Equal(t, model.KindUnknown, e99.Kind)
	assert.Equal(t, 1, e99.IncomingTrips)
	assert.Equal(t, 0, e99.OutgoingTrips)
}

func TestBuildIndex_EmptyTripsEmitsZeroEntries(t *testing.T) {
	cat := catalogWith(t,
		station(1, 40.7, -74.0, "a"),
		station(2, 40.7, -74.0, "b"),
		station(3, 40.7, -74.0, "c"),
	)

	index := pipeline.BuildIndex(cat, pipeline.NewAccumulator())

	require.Len(t, index, 3)
	for _, e := range index {
		assert.Zero(t, e.AllTrips)
		assert.Zero(t, e.IncomingTrips)
		assert.Zero(t, e.OutgoingTrips)
		assert.Zero(t, e.BikesInbound)
		assert.Zero(t, e.BikesOutbound)
		assert.Zero(t, e.DeltaTrips)
		assert.Zero(t, e.DeltaBikes)
	}
}

func TestBuildIndex_Conservation(t *testing.T) {
	cat := catalogWith(t,
		station(72, 40.767, -73.994, "a"),
		station(505, 40.749, -73.988, "b"),
	)
	index := pipeline.BuildIndex(cat, accumulate(sampleTrips()))

	for _, e := range index {
		assert.Equal(t, e.IncomingTrips+e.OutgoingTrips, e.AllTrips, "station %d", e.StationID)
		assert.Equal(t, e.OutgoingTrips-e.IncomingTrips, e.DeltaTrips, "station %d", e.StationID)
		assert.Equal(t, e.BikesOutbound-e.BikesInbound, e.DeltaBikes, "station %d", e.StationID)
	}
}

func TestBuildIndex_NoSilentOmission(t *testing.T) {
	cat := catalogWith(t,
		station(72, 40.767, -73.994, "a"),
		station(505, 40.749, -73.988, "b"),
		station(7, 40.7, -74.0, "never used"),
	)
	acc := accumulate(sampleTrips())

	index := pipeline.BuildIndex(cat, acc)

	want := map[int]struct{}{7: {}, 72: {}, 99: {}, 505: {}}
	assert.Len(t, index, len(want))
	seen := make(map[int]int)
	for _, e := range index {
		seen[e.StationID]++
	}
	for id := range want {
		assert.Equal(t, 1, seen[id], "station %d must appear exactly once", id)
	}
}

func TestBuildIndex_SortedByStationID(t *testing.T) {
	cat := catalogWith(t,
		station(505, 40.749, -73.988, "b"),
		station(72, 40.767, -73.994, "a"),
	)
	index := pipeline.BuildIndex(cat, accumulate(sampleTrips()))

	assert.True(t, sort.SliceIsSorted(index, func(i, j int) bool {
		return index[i].StationID < index[j].StationID
	}))
}
