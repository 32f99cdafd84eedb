package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go-station-index/internal/model"
)

// ------------------- Station Catalog -------------------

// Station catalog column names. The catalog source is small and produced
// in-house, so these are fixed rather than configurable like the trip schema.
const (
	colStationID   = "station id"
	colLatitude    = "latitude"
	colLongitude   = "longitude"
	colStationName = "station name"
	colKind        = "kind"
)

// coordTolerance is how far apart two coordinates may be before duplicate
// station rows count as conflicting rather than identical.
const coordTolerance = 1e-6

// Catalog holds canonical station metadata keyed by station id, loaded once
// per run and read-only afterwards.
type Catalog struct {
	byID   map[int]model.Station
	bounds model.Bounds
	order  []int // ids in load order
}

// NewCatalog returns an empty catalog enforcing the given bounding box.
func NewCatalog(bounds model.Bounds) *Catalog {
	return &Catalog{byID: make(map[int]model.Station), bounds: bounds}
}

// Add inserts one station. Coordinates outside the bounding box and duplicate
// ids with conflicting metadata are fatal CatalogErrors; duplicates with
// identical metadata are deduplicated silently.
func (c *Catalog) Add(st model.Station) error {
	if !c.bounds.Contains(st.Latitude, st.Longitude) {
		return &model.CatalogError{
			StationID: st.ID,
			Reason: fmt.Sprintf("coordinates (%.6f, %.6f) outside bounding box lat [%.4f, %.4f] lon [%.4f, %.4f]",
				st.Latitude, st.Longitude, c.bounds.MinLat, c.bounds.MaxLat, c.bounds.MinLon, c.bounds.MaxLon),
		}
	}
	if prev, ok := c.byID[st.ID]; ok {
		if sameStation(prev, st) {
			return nil
		}
		return &model.CatalogError{StationID: st.ID, Reason: "duplicate id with conflicting metadata"}
	}
	c.byID[st.ID] = st
	c.order = append(c.order, st.ID)
	return nil
}

// Lookup returns the station for id. Callers must handle the missing case;
// trip rows routinely reference ids the catalog has never seen.
func (c *Catalog) Lookup(id int) (model.Station, bool) {
	st, ok := c.byID[id]
	return st, ok
}

// Stations returns all stations in catalog (load) order.
func (c *Catalog) Stations() []model.Station {
	out := make([]model.Station, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns all station ids in ascending order.
func (c *Catalog) IDs() []int {
	ids := make([]int, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len is the number of distinct stations loaded.
func (c *Catalog) Len() int { return len(c.byID) }

// Bounds returns the bounding box the catalog was loaded against.
func (c *Catalog) Bounds() model.Bounds { return c.bounds }

func sameStation(a, b model.Station) bool {
	return a.Name == b.Name &&
		a.Kind == b.Kind &&
		math.Abs(a.Latitude-b.Latitude) <= coordTolerance &&
		math.Abs(a.Longitude-b.Longitude) <= coordTolerance
}

// ParseStationRow coerces one raw catalog row. Any unusable field is fatal:
// the catalog is the reference data, a broken row means a broken catalog.
func ParseStationRow(row model.RawRow) (model.Station, error) {
	id, err := strconv.Atoi(strings.TrimSpace(row[colStationID]))
	if err != nil {
		return model.Station{}, &model.CatalogError{Reason: fmt.Sprintf("non-numeric station id %q", row[colStationID])}
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(row[colLatitude]), 64)
	if err != nil {
		return model.Station{}, &model.CatalogError{StationID: id, Reason: "unparseable latitude"}
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(row[colLongitude]), 64)
	if err != nil {
		return model.Station{}, &model.CatalogError{StationID: id, Reason: "unparseable longitude"}
	}
	kind := strings.ToLower(strings.TrimSpace(row[colKind]))
	switch kind {
	case model.KindActive, model.KindInactive:
	case "":
		kind = model.KindActive
	default:
		return model.Station{}, &model.CatalogError{StationID: id, Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
	return model.Station{
		ID:        id,
		Latitude:  lat,
		Longitude: lon,
		Name:      strings.TrimSpace(row[colStationName]),
		Kind:      kind,
	}, nil
}
