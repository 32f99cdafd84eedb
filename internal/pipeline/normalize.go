package pipeline

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"go-station-index/internal/model"
)

// ------------------- Normalization -------------------

// Default trip column names, matching the Citi Bike trip exports.
const (
	defaultColStartStation = "start station id"
	defaultColEndStation   = "end station id"
	defaultColStartTime    = "starttime"
	defaultColStopTime     = "stoptime"
	defaultColBikeID       = "bikeid"
	defaultColUserType     = "usertype"
	defaultColBirthYear    = "birth year"
	defaultColGender       = "gender"
)

// defaultTimeLayouts cover the plain and fractional-second timestamp formats
// seen in the trip exports.
var defaultTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.0000",
	time.RFC3339,
}

// Skip reasons reported by the normalizer and surfaced by the completeness
// check.
const (
	SkipMissingField  = "missing_field"
	SkipBadStartTime  = "bad_start_time"
	SkipBadStopTime   = "bad_stop_time"
	SkipBadStationID  = "bad_station_id"
	SkipBadBikeID     = "bad_bike_id"
	SkipMalformedLine = "malformed_line"
)

// SkipStats counts raw rows seen and rows dropped during normalization, by
// reason.
type SkipStats struct {
	RawRows int64            `json:"raw_rows"`
	Skipped map[string]int64 `json:"skipped"`
}

// Total is the number of dropped rows across all reasons.
func (s SkipStats) Total() int64 {
	var n int64
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Normalizer coerces raw trip rows into TripRecords according to the
// configured schema. Safe for concurrent use by normalization workers.
//
// Rows that parse but violate temporal coherence (stop before start, or an
// implausible duration) are kept: the temporal coherence check reports them,
// and they still contribute to aggregation.
type Normalizer struct {
	cols    map[string]string // canonical field -> source column
	layouts []string

	mu    sync.Mutex
	stats SkipStats
}

// NewNormalizer builds a Normalizer for the given schema, falling back to the
// default column names and timestamp layouts where the schema is silent.
func NewNormalizer(schema model.Schema) *Normalizer {
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	layouts := schema.TimeLayouts
	if len(layouts) == 0 {
		layouts = defaultTimeLayouts
	}
	return &Normalizer{
		cols: map[string]string{
			"start_station_id": pick(schema.StartStationID, defaultColStartStation),
			"end_station_id":   pick(schema.EndStationID, defaultColEndStation),
			"start_time":       pick(schema.StartTime, defaultColStartTime),
			"stop_time":        pick(schema.StopTime, defaultColStopTime),
			"bike_id":          pick(schema.BikeID, defaultColBikeID),
			"user_type":        pick(schema.UserType, defaultColUserType),
			"birth_year":       pick(schema.BirthYear, defaultColBirthYear),
			"gender":           pick(schema.Gender, defaultColGender),
		},
		layouts: layouts,
		stats:   SkipStats{Skipped: make(map[string]int64)},
	}
}

// CheckHeader verifies that every required column is present. A missing
// column is a systemic SchemaError: the whole input is unusable and the run
// must abort before aggregation. Birth year and gender are optional.
func (n *Normalizer) CheckHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[cleanHeader(h)] = true
	}
	required := []string{
		"start_station_id", "end_station_id", "start_time", "stop_time", "bike_id", "user_type",
	}
	for _, field := range required {
		if col := n.cols[field]; !present[col] {
			return &model.SchemaError{Column: col, Reason: "required column missing from input header"}
		}
	}
	return nil
}

// Normalize coerces one raw row. On failure the row is dropped, the skip
// reason counted, and a per-row SchemaError returned; the caller continues
// with the next row.
func (n *Normalizer) Normalize(row model.RawRow, rowNum int64) (model.TripRecord, error) {
	n.count(func(s *SkipStats) { s.RawRows++ })

	startStation, err := n.intField(row, "start_station_id", rowNum, SkipBadStationID)
	if err != nil {
		return model.TripRecord{}, err
	}
	endStation, err := n.intField(row, "end_station_id", rowNum, SkipBadStationID)
	if err != nil {
		return model.TripRecord{}, err
	}
	startTime, err := n.timeField(row, "start_time", rowNum, SkipBadStartTime)
	if err != nil {
		return model.TripRecord{}, err
	}
	stopTime, err := n.timeField(row, "stop_time", rowNum, SkipBadStopTime)
	if err != nil {
		return model.TripRecord{}, err
	}
	bikeID, err := n.intField(row, "bike_id", rowNum, SkipBadBikeID)
	if err != nil {
		return model.TripRecord{}, err
	}

	rec := model.TripRecord{
		ID:             rowNum,
		StartStationID: startStation,
		EndStationID:   endStation,
		StartTime:      startTime,
		StopTime:       stopTime,
		BikeID:         bikeID,
		UserType:       strings.TrimSpace(row[n.cols["user_type"]]),
	}

	// Optional demographics: absence or garbage never drops the row.
	if v := strings.TrimSpace(row[n.cols["birth_year"]]); v != "" && v != `\N` {
		if y, err := strconv.Atoi(v); err == nil {
			rec.BirthYear = &y
		}
	}
	if v := strings.TrimSpace(row[n.cols["gender"]]); v != "" {
		if g, err := strconv.Atoi(v); err == nil && g >= 0 && g <= 2 {
			rec.Gender = g
		}
	}

	return rec, nil
}

// Stats returns a copy of the accumulated skip counters.
func (n *Normalizer) Stats() SkipStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := SkipStats{RawRows: n.stats.RawRows, Skipped: make(map[string]int64, len(n.stats.Skipped))}
	for k, v := range n.stats.Skipped {
		out.Skipped[k] = v
	}
	return out
}

// CountMalformed records a raw line the CSV reader could not deliver at all.
func (n *Normalizer) CountMalformed() {
	n.count(func(s *SkipStats) {
		s.RawRows++
		s.Skipped[SkipMalformedLine]++
	})
}

func (n *Normalizer) count(f func(*SkipStats)) {
	n.mu.Lock()
	f(&n.stats)
	n.mu.Unlock()
}

func (n *Normalizer) skip(reason string, rowNum int64, col string) error {
	n.count(func(s *SkipStats) { s.Skipped[reason]++ })
	return &model.SchemaError{Row: rowNum, Column: col, Reason: reason}
}

func (n *Normalizer) intField(row model.RawRow, field string, rowNum int64, reason string) (int, error) {
	col := n.cols[field]
	v := strings.TrimSpace(row[col])
	if v == "" {
		return 0, n.skip(SkipMissingField, rowNum, col)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, n.skip(reason, rowNum, col)
	}
	return i, nil
}

func (n *Normalizer) timeField(row model.RawRow, field string, rowNum int64, reason string) (time.Time, error) {
	col := n.cols[field]
	v := strings.TrimSpace(row[col])
	if v == "" {
		return time.Time{}, n.skip(SkipMissingField, rowNum, col)
	}
	for _, layout := range n.layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, n.skip(reason, rowNum, col)
}

// cleanHeader trims whitespace and stray quotes from a column name.
func cleanHeader(h string) string {
	return strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
}
