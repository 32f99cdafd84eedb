package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go-station-index/internal/model"
)

// ------------------- Aggregation -------------------

// DirectionTotals accumulates the trip count and distinct bike set for one
// station in one direction.
type DirectionTotals struct {
	Trips int
	Bikes map[int]struct{}
}

func newDirectionTotals() *DirectionTotals {
	return &DirectionTotals{Bikes: make(map[int]struct{})}
}

// Accumulator holds per-station totals for both directions. Add and Merge are
// commutative and associative, so the result is identical regardless of trip
// order or how the trip stream was partitioned across workers.
type Accumulator struct {
	Outgoing  map[int]*DirectionTotals // keyed by start station id
	Incoming  map[int]*DirectionTotals // keyed by end station id
	TripCount int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		Outgoing: make(map[int]*DirectionTotals),
		Incoming: make(map[int]*DirectionTotals),
	}
}

// Add folds one trip into the totals. A self-loop trip (start == end)
// contributes one outgoing and one incoming count on the same station.
// Unknown station ids aggregate under their id like any other; the
// referential integrity check reports them later.
func (a *Accumulator) Add(t model.TripRecord) {
	out := a.Outgoing[t.StartStationID]
	if out == nil {
		out = newDirectionTotals()
		a.Outgoing[t.StartStationID] = out
	}
	out.Trips++
	out.Bikes[t.BikeID] = struct{}{}

	in := a.Incoming[t.EndStationID]
	if in == nil {
		in = newDirectionTotals()
		a.Incoming[t.EndStationID] = in
	}
	in.Trips++
	in.Bikes[t.BikeID] = struct{}{}

	a.TripCount++
}

// Merge folds other into a: counts sum, bike sets union. other must not be
// used afterwards.
func (a *Accumulator) Merge(other *Accumulator) {
	mergeDirection(a.Outgoing, other.Outgoing)
	mergeDirection(a.Incoming, other.Incoming)
	a.TripCount += other.TripCount
}

func mergeDirection(dst, src map[int]*DirectionTotals) {
	for id, totals := range src {
		d := dst[id]
		if d == nil {
			dst[id] = totals
			continue
		}
		d.Trips += totals.Trips
		for bike := range totals.Bikes {
			d.Bikes[bike] = struct{}{}
		}
	}
}

// StationIDs returns every station id referenced by any trip, in ascending
// order.
func (a *Accumulator) StationIDs() []int {
	seen := make(map[int]struct{}, len(a.Outgoing)+len(a.Incoming))
	for id := range a.Outgoing {
		seen[id] = struct{}{}
	}
	for id := range a.Incoming {
		seen[id] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AggregateTrips drains the trip channel with workerCount workers, each
// folding into a private accumulator, and merges the partials once all
// workers finish. Because Add and Merge are associative this produces the
// same result as a single sequential pass.
func AggregateTrips(ctx context.Context, in <-chan model.TripRecord, workerCount int) *Accumulator {
	if workerCount < 1 {
		workerCount = 1
	}

	partials := make([]*Accumulator, workerCount)
	var wg sync.WaitGroup
	wg.Add(workerCount)

	for i := 0; i < workerCount; i++ {
		partials[i] = NewAccumulator()
		go func(workerID int, acc *Accumulator) {
			defer wg.Done()
			for t := range in {
				select {
				case <-ctx.Done():
					return
				default:
					acc.Add(t)
				}
			}
			fmt.Printf("📊 Aggregation Worker %d completed: %d trips folded\n", workerID+1, acc.TripCount)
		}(i, partials[i])
	}

	wg.Wait()

	merged := partials[0]
	for _, p := range partials[1:] {
		merged.Merge(p)
	}
	return merged
}

// AggregateAll aggregates an in-memory trip slice, fanning out across
// workerCount workers. Convenience wrapper over AggregateTrips.
func AggregateAll(ctx context.Context, trips []model.TripRecord, workerCount int) *Accumulator {
	in := make(chan model.TripRecord, 256)
	go func() {
		defer close(in)
		for _, t := range trips {
			select {
			case <-ctx.Done():
				return
			case in <- t:
			}
		}
	}()
	return AggregateTrips(ctx, in, workerCount)
}
