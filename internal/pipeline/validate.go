package pipeline

import (
	"fmt"
	"sort"
	"time"

	"go-station-index/internal/model"
)

// ------------------- Validation -------------------

// Check names as they appear in the validation report.
const (
	CheckCompleteness = "completeness"
	CheckSpatial      = "spatial_consistency"
	CheckTemporal     = "temporal_coherence"
	CheckReferential  = "referential_integrity"
	CheckConservation = "conservation"
)

// ValidationInput bundles everything the check battery runs against.
type ValidationInput struct {
	Trips                 []model.TripRecord
	Catalog               *Catalog
	Index                 []model.StationIndexEntry
	Stats                 SkipStats
	Bounds                model.Bounds
	MaxTripDuration       time.Duration
	CompletenessThreshold float64
}

// Validate runs the fixed battery of integrity checks. Checks are independent
// and never short-circuit: all of them run even when earlier ones fail, and a
// failing report never blocks index production.
func Validate(in ValidationInput) model.ValidationReport {
	checks := []model.CheckResult{
		checkCompleteness(in),
		checkSpatial(in),
		checkTemporal(in),
		checkReferential(in),
		checkConservation(in),
	}

	report := model.ValidationReport{
		Status: model.StatusPass,
		Checks: make(map[string]model.CheckResult, len(checks)),
	}
	for _, c := range checks {
		report.Checks[c.Name] = c
		if c.Status == model.StatusFail {
			report.Status = model.StatusFail
			report.Failed = append(report.Failed, c.Name)
		}
	}
	sort.Strings(report.Failed)
	return report
}

// checkCompleteness verifies that the fraction of raw rows surviving
// normalization meets the configured threshold. An empty input passes
// trivially: there was nothing to lose.
func checkCompleteness(in ValidationInput) model.CheckResult {
	skipped := in.Stats.Total()
	normalized := in.Stats.RawRows - skipped
	fraction := 1.0
	if in.Stats.RawRows > 0 {
		fraction = float64(normalized) / float64(in.Stats.RawRows)
	}

	status := model.StatusPass
	if fraction < in.CompletenessThreshold {
		status = model.StatusFail
	}
	return model.CheckResult{
		Name:   CheckCompleteness,
		Status: status,
		Details: map[string]interface{}{
			"raw_rows":   in.Stats.RawRows,
			"normalized": normalized,
			"skipped":    skipped,
			"reasons":    in.Stats.Skipped,
			"fraction":   fraction,
			"threshold":  in.CompletenessThreshold,
		},
	}
}

// checkSpatial re-asserts that every catalog station sits inside the
// configured bounding box. The catalog already enforces this at load time;
// checking against the run's own bounds guards against an index built from a
// catalog loaded under different ones.
func checkSpatial(in ValidationInput) model.CheckResult {
	var outside []int
	for _, st := range in.Catalog.Stations() {
		if !in.Bounds.Contains(st.Latitude, st.Longitude) {
			outside = append(outside, st.ID)
		}
	}
	sort.Ints(outside)

	status := model.StatusPass
	if len(outside) > 0 {
		status = model.StatusFail
	}
	return model.CheckResult{
		Name:   CheckSpatial,
		Status: status,
		Details: map[string]interface{}{
			"stations_checked": in.Catalog.Len(),
			"out_of_bounds":    outside,
		},
	}
}

// checkTemporal verifies start <= stop and duration <= ceiling for every
// trip, collecting the offending trip identifiers rather than just a count.
func checkTemporal(in ValidationInput) model.CheckResult {
	var negative, tooLong []int64
	for _, t := range in.Trips {
		d := t.Duration()
		switch {
		case d < 0:
			negative = append(negative, t.ID)
		case d > in.MaxTripDuration:
			tooLong = append(tooLong, t.ID)
		}
	}
	sortInt64s(negative)
	sortInt64s(tooLong)

	status := model.StatusPass
	if len(negative)+len(tooLong) > 0 {
		status = model.StatusFail
	}
	return model.CheckResult{
		Name:   CheckTemporal,
		Status: status,
		Details: map[string]interface{}{
			"trips_checked":     len(in.Trips),
			"negative_duration": negative,
			"over_ceiling":      tooLong,
			"ceiling":           in.MaxTripDuration.String(),
		},
	}
}

// checkReferential verifies that every station id referenced by a trip
// resolves in the catalog, listing unresolved ids with occurrence counts.
func checkReferential(in ValidationInput) model.CheckResult {
	unresolved := make(map[int]int)
	for _, t := range in.Trips {
		if _, ok := in.Catalog.Lookup(t.StartStationID); !ok {
			unresolved[t.StartStationID]++
		}
		if _, ok := in.Catalog.Lookup(t.EndStationID); !ok {
			unresolved[t.EndStationID]++
		}
	}

	// Stable listing for the report.
	byID := make(map[string]int, len(unresolved))
	for id, count := range unresolved {
		byID[fmt.Sprintf("%d", id)] = count
	}

	status := model.StatusPass
	if len(unresolved) > 0 {
		status = model.StatusFail
	}
	return model.CheckResult{
		Name:   CheckReferential,
		Status: status,
		Details: map[string]interface{}{
			"unresolved_count": len(unresolved),
			"unresolved":       byID,
		},
	}
}

// checkConservation re-derives the index arithmetic: all == incoming +
// outgoing and delta == outgoing - incoming for every entry. This is a
// cross-check against the builder itself, not against the input.
func checkConservation(in ValidationInput) model.CheckResult {
	var violations []int
	for _, e := range in.Index {
		if e.AllTrips != e.IncomingTrips+e.OutgoingTrips ||
			e.DeltaTrips != e.OutgoingTrips-e.IncomingTrips ||
			e.DeltaBikes != e.BikesOutbound-e.BikesInbound {
			violations = append(violations, e.StationID)
		}
	}
	sort.Ints(violations)

	status := model.StatusPass
	if len(violations) > 0 {
		status = model.StatusFail
	}
	return model.CheckResult{
		Name:   CheckConservation,
		Status: status,
		Details: map[string]interface{}{
			"entries_checked": len(in.Index),
			"violations":      violations,
		},
	}
}

func sortInt64s(v []int64) {
	sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })
}
