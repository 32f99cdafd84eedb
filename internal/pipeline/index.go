package pipeline

import (
	"sort"

	"go-station-index/internal/model"
)

// ------------------- Index Builder -------------------

// BuildIndex merges the aggregation totals into the station catalog,
// producing exactly one entry per station id in the union of the catalog and
// the ids referenced by any trip, sorted ascending by id. Stations with zero
// activity still get an entry; ids unknown to the catalog get one with kind
// "unknown" so nothing is silently dropped.
func BuildIndex(cat *Catalog, acc *Accumulator) []model.StationIndexEntry {
	ids := make(map[int]struct{}, cat.Len())
	for _, id := range cat.IDs() {
		ids[id] = struct{}{}
	}
	for _, id := range acc.StationIDs() {
		ids[id] = struct{}{}
	}

	sorted := make([]int, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Ints(sorted)

	entries := make([]model.StationIndexEntry, 0, len(sorted))
	for _, id := range sorted {
		entry := model.StationIndexEntry{StationID: id, Kind: model.KindUnknown}
		if st, ok := cat.Lookup(id); ok {
			entry.Latitude = st.Latitude
			entry.Longitude = st.Longitude
			entry.Name = st.Name
			entry.Kind = st.Kind
		}
		if out := acc.Outgoing[id]; out != nil {
			entry.OutgoingTrips = out.Trips
			entry.BikesOutbound = len(out.Bikes)
		}
		if in := acc.Incoming[id]; in != nil {
			entry.IncomingTrips = in.Trips
			entry.BikesInbound = len(in.Bikes)
		}
		entry.AllTrips = entry.IncomingTrips + entry.OutgoingTrips
		entry.DeltaTrips = entry.OutgoingTrips - entry.IncomingTrips
		entry.DeltaBikes = entry.BikesOutbound - entry.BikesInbound
		entries = append(entries, entry)
	}
	return entries
}
