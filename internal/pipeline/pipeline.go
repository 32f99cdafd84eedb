package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-station-index/internal/model"
	"go-station-index/internal/store"
	"go-station-index/pkg/utils"
)

// ------------------- Pipeline Runner -------------------

const (
	defaultNormalizeWorkers   = 3
	defaultAggregationWorkers = 2
	defaultChannelBuffer      = 100
	defaultRunTimeout         = 5 * time.Minute
)

// Result is everything a completed run produced. The index and the report are
// both emitted even when validation fails; only structural errors (schema,
// catalog) prevent a Result.
type Result struct {
	RunID    string                    `json:"run_id"`
	Index    []model.StationIndexEntry `json:"index"`
	Report   model.ValidationReport    `json:"report"`
	Stats    SkipStats                 `json:"stats"`
	Exports  []ExportResult            `json:"exports,omitempty"`
	Duration time.Duration             `json:"duration"`
}

// Run executes the whole engine for one run spec: load catalog, ingest and
// normalize trips, aggregate, build the index, validate, export. Returns an
// error only for structural failures; a failing validation report is carried
// inside the Result.
func Run(ctx context.Context, runID string, spec model.RunSpec) (res *Result, err error) {
	start := time.Now()
	fmt.Printf("🚀 Starting station index run: %s\n", runID)

	store.UpdateRunStatus(runID, "running")
	defer func() {
		if err != nil {
			store.UpdateRunStatus(runID, "failed")
			store.SaveRunError(runID, err)
		}
	}()

	timeout := utils.ParseDuration(spec.Concurrency.RunTimeout, defaultRunTimeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// --- CATALOG STAGE ---
	// The catalog is the reference universe; a broken catalog aborts before
	// any trip is read.
	stageStart := time.Now()
	store.UpdateRunStatus(runID, "loading_catalog")
	store.SaveStageProgress(runID, "catalog", "started", stageStart, nil, 0)

	catalog, err := LoadCatalog(ctx, spec.Stations, spec.Bounds)
	if err != nil {
		return nil, err
	}
	stageEnd := time.Now()
	store.SaveStageProgress(runID, "catalog", "completed", stageStart, &stageEnd, catalog.Len())
	store.SaveRunLog(runID, "catalog", "info", fmt.Sprintf("catalog loaded: %d stations", catalog.Len()))

	// --- INGEST + NORMALIZE STAGES ---
	buffer := spec.Concurrency.ChannelBufferSize
	if buffer == 0 {
		buffer = defaultChannelBuffer
	}
	rawCh := make(chan Row, buffer)
	tripCh := make(chan model.TripRecord, buffer)

	normalizer := NewNormalizer(spec.Schema)

	stageStart = time.Now()
	store.UpdateRunStatus(runID, "normalizing")
	store.SaveStageProgress(runID, "normalize", "started", stageStart, nil, 0)

	var ingestErr error
	var ingestWg sync.WaitGroup
	ingestWg.Add(1)
	go func() {
		defer ingestWg.Done()
		ingestErr = StreamTrips(ctx, spec.Trips, normalizer.CheckHeader, rawCh, normalizer.CountMalformed)
	}()

	numWorkers := spec.Concurrency.Workers.Normalize
	if numWorkers == 0 {
		numWorkers = defaultNormalizeWorkers
	}
	var normWg sync.WaitGroup
	normWg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func(workerID int) {
			defer normWg.Done()
			processed := 0
			for row := range rawCh {
				rec, err := normalizer.Normalize(row.Fields, row.Num)
				if err != nil {
					// Per-row failure: dropped and counted, never fatal.
					continue
				}
				select {
				case <-ctx.Done():
					return
				case tripCh <- rec:
					processed++
				}
			}
			fmt.Printf("🔍 Normalize Worker %d completed: %d records\n", workerID+1, processed)
		}(i)
	}
	go func() {
		normWg.Wait()
		close(tripCh)
	}()

	// Collect the normalized trip set; the core operates over in-memory
	// sequences, and validation needs a second pass over the trips.
	var trips []model.TripRecord
	for rec := range tripCh {
		trips = append(trips, rec)
	}
	ingestWg.Wait()
	if ingestErr != nil {
		return nil, ingestErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := normalizer.Stats()
	stageEnd = time.Now()
	store.SaveStageProgress(runID, "normalize", "completed", stageStart, &stageEnd, len(trips))
	store.SaveRunLog(runID, "normalize", "info",
		fmt.Sprintf("normalized %d of %d raw rows (%d skipped)", len(trips), stats.RawRows, stats.Total()))

	// --- AGGREGATION STAGE ---
	stageStart = time.Now()
	store.UpdateRunStatus(runID, "aggregating")
	store.SaveStageProgress(runID, "aggregate", "started", stageStart, nil, 0)

	aggWorkers := spec.Concurrency.Workers.Aggregation
	if aggWorkers == 0 {
		aggWorkers = defaultAggregationWorkers
	}
	acc := AggregateAll(ctx, trips, aggWorkers)

	stageEnd = time.Now()
	store.SaveStageProgress(runID, "aggregate", "completed", stageStart, &stageEnd, acc.TripCount)

	// --- INDEX + VALIDATION ---
	store.UpdateRunStatus(runID, "validating")
	index := BuildIndex(catalog, acc)

	report := Validate(ValidationInput{
		Trips:                 trips,
		Catalog:               catalog,
		Index:                 index,
		Stats:                 stats,
		Bounds:                spec.Bounds,
		MaxTripDuration:       utils.ParseDuration(spec.MaxTripDuration, 24*time.Hour),
		CompletenessThreshold: spec.CompletenessThreshold,
	})
	if report.Status == model.StatusFail {
		store.SaveRunLog(runID, "validate", "warning",
			fmt.Sprintf("validation failed: %v", report.Failed))
	}
	store.SaveIndexEntries(runID, index)
	store.SaveValidationReport(runID, report)

	// --- EXPORT STAGE ---
	store.UpdateRunStatus(runID, "exporting")
	om := utils.NewOutputManager("exports")
	exports := ExportIndex(ctx, runID, spec.Export, om, index, report)

	duration := time.Since(start)
	fmt.Printf("🏁 Run %s completed in %v: %d stations indexed, report %s\n",
		runID, duration, len(index), report.Status)
	store.UpdateRunStatus(runID, "completed")

	return &Result{
		RunID:    runID,
		Index:    index,
		Report:   report,
		Stats:    stats,
		Exports:  exports,
		Duration: duration,
	}, nil
}
