package pipeline_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-station-index/internal/model"
	"go-station-index/internal/pipeline"
)

func trip(id int64, start, end, bike int) model.TripRecord {
	t0 := time.Date(2019, 7, 1, 8, 0, 0, 0, time.UTC)
	return model.TripRecord{
		ID:             id,
		StartStationID: start,
		EndStationID:   end,
		StartTime:      t0,
		StopTime:       t0.Add(10 * time.Minute),
		BikeID:         bike,
		UserType:       "Subscriber",
	}
}

func sampleTrips() []model.TripRecord {
	return []model.TripRecord{
		trip(1, 72, 505, 100),
		trip(2, 72, 72, 101), // self-loop
		trip(3, 505, 72, 100),
		trip(4, 505, 99, 102), // 99 not in any catalog
		trip(5, 72, 505, 100), // same bike again
		trip(6, 99, 72, 103),
	}
}

func accumulate(trips []model.TripRecord) *pipeline.Accumulator {
	acc := pipeline.NewAccumulator()
	for _, t := range trips {
		acc.Add(t)
	}
	return acc
}

func TestAccumulator_SelfLoopCountsBothDirections(t *testing.T) {
	acc := accumulate([]model.TripRecord{trip(1, 72, 72, 5)})

	require.NotNil(t, acc.Outgoing[72])
	require.NotNil(t, acc.Incoming[72])
	assert.Equal(t, 1, acc.Outgoing[72].Trips)
	assert.Equal(t, 1, acc.Incoming[72].Trips)
	assert.Len(t, acc.Outgoing[72].Bikes, 1)
}

func TestAccumulator_DistinctBikes(t *testing.T) {
	acc := accumulate([]model.TripRecord{
		trip(1, 72, 505, 100),
		trip(2, 72, 505, 100),
		trip(3, 72, 505, 101),
	})

	assert.Equal(t, 3, acc.Outgoing[72].Trips)
	assert.Len(t, acc.Outgoing[72].Bikes, 2)
	assert.Len(t, acc.Incoming[505].Bikes, 2)
}

func TestAccumulator_OrderIndependence(t *testing.T) {
	trips := sampleTrips()

	reversed := make([]model.TripRecord, len(trips))
	for i, tr := range trips {
		reversed[len(trips)-1-i] = tr
	}
	shuffled := make([]model.TripRecord, len(trips))
	copy(shuffled, trips)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	want := accumulate(trips)
	assert.Equal(t, want, accumulate(reversed))
	assert.Equal(t, want, accumulate(shuffled))
}

func TestAccumulator_MergeEquivalence(t *testing.T) {
	trips := sampleTrips()
	want := accumulate(trips)

	for k := 1; k <= 4; k++ {
		partials := make([]*pipeline.Accumulator, k)
		for i := range partials {
			partials[i] = pipeline.NewAccumulator()
		}
		for i, tr := range trips {
			partials[i%k].Add(tr)
		}
		merged := partials[0]
		for _, p := range partials[1:] {
			merged.Merge(p)
		}
		assert.Equal(t, want, merged, "k=%d partitions must merge to the sequential result", k)
	}
}

func TestAggregateAll_MatchesSequential(t *testing.T) {
	trips := sampleTrips()
	want := accumulate(trips)

	for _, workers := range []int{1, 2, 4, 8} {
		got := pipeline.AggregateAll(context.Background(), trips, workers)
		assert.Equal(t, want, got, "workers=%d", workers)
	}
}

func TestAccumulator_StationIDs(t *testing.T) {
	acc := accumulate(sampleTrips())
	assert.Equal(t, []int{72, 99, 505}, acc.StationIDs())
}
