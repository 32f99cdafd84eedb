package pipeline

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"go-station-index/internal/model"
	"go-station-index/internal/store"
	"go-station-index/pkg/utils"
)

// ------------------- Export -------------------

// ExportResult records the outcome of one export operation.
type ExportResult struct {
	Type        string    `json:"type"` // "csv", "json", "sqlite", "postgres"
	Path        string    `json:"path"` // file path or table name
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// indexHeader is the fixed column order of the exported station index. The
// outbound/inbound trip columns repeat the outgoing/incoming counts; the
// historical consumers of these files expect both spellings.
var indexHeader = []string{
	"station id", "latitude", "longitude", "station name",
	"incoming trips", "outgoing trips", "all trips", "kind",
	"bikes outbound", "outbound trips", "bikes inbound", "inbound trips",
	"delta bikes", "delta trips",
}

func indexRow(e model.StationIndexEntry) []string {
	return []string{
		strconv.Itoa(e.StationID),
		strconv.FormatFloat(e.Latitude, 'f', -1, 64),
		strconv.FormatFloat(e.Longitude, 'f', -1, 64),
		e.Name,
		strconv.Itoa(e.IncomingTrips),
		strconv.Itoa(e.OutgoingTrips),
		strconv.Itoa(e.AllTrips),
		e.Kind,
		strconv.Itoa(e.BikesOutbound),
		strconv.Itoa(e.OutgoingTrips),
		strconv.Itoa(e.BikesInbound),
		strconv.Itoa(e.IncomingTrips),
		strconv.Itoa(e.DeltaBikes),
		strconv.Itoa(e.DeltaTrips),
	}
}

// ExportIndex writes the built index (and report, for structured targets) to
// every configured target. Export failures are reported per target, never
// fatal: the caller already holds the index and the report in memory.
func ExportIndex(ctx context.Context, runID string, spec *model.Export, om *utils.OutputManager,
	index []model.StationIndexEntry, report model.ValidationReport) []ExportResult {

	if spec == nil {
		return nil
	}

	var results []ExportResult

	csvPath := spec.CSV
	if csvPath == "" && spec.JSON == "" && spec.DB == "" {
		// Nothing configured: fall back to a run-scoped default CSV.
		p, err := om.RunFilePath(runID, "station_index.csv")
		if err != nil {
			return []ExportResult{failed("csv", "", err)}
		}
		csvPath = p
	}

	if csvPath != "" {
		results = append(results, exportCSV(csvPath, index))
	}
	if spec.JSON != "" {
		results = append(results, exportJSON(spec.JSON, runID, index, report))
	}
	switch spec.DB {
	case "sqlite":
		results = append(results, exportSQLite(runID, index))
	case "postgres":
		results = append(results, exportPostgres(ctx, spec, index))
	}

	for _, r := range results {
		if r.Success {
			fmt.Printf("✅ Export (%s): %d entries written to %s\n", r.Type, r.RecordCount, r.Path)
		} else {
			fmt.Printf("❌ Export (%s) failed: %s\n", r.Type, r.Error)
		}
	}
	return results
}

func failed(kind, path string, err error) ExportResult {
	return ExportResult{Type: kind, Path: path, Error: err.Error(), ExportedAt: time.Now().UTC()}
}

func exportCSV(path string, index []model.StationIndexEntry) ExportResult {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return failed("csv", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return failed("csv", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(indexHeader); err != nil {
		return failed("csv", path, err)
	}
	for _, e := range index {
		if err := w.Write(indexRow(e)); err != nil {
			return failed("csv", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return failed("csv", path, err)
	}
	return ExportResult{Type: "csv", Path: path, RecordCount: len(index), Success: true, ExportedAt: time.Now().UTC()}
}

func exportJSON(path, runID string, index []model.StationIndexEntry, report model.ValidationReport) ExportResult {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return failed("json", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return failed("json", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	doc := map[string]interface{}{
		"run_id":      runID,
		"exported_at": time.Now().UTC(),
		"entry_count": len(index),
		"index":       index,
		"report":      report,
	}
	if err := enc.Encode(doc); err != nil {
		return failed("json", path, err)
	}
	return ExportResult{Type: "json", Path: path, RecordCount: len(index), Success: true, ExportedAt: time.Now().UTC()}
}

func exportSQLite(runID string, index []model.StationIndexEntry) ExportResult {
	if err := store.SaveIndexEntries(runID, index); err != nil {
		return failed("sqlite", "index_entries", err)
	}
	return ExportResult{Type: "sqlite", Path: "index_entries", RecordCount: len(index), Success: true, ExportedAt: time.Now().UTC()}
}

func exportPostgres(ctx context.Context, spec *model.Export, index []model.StationIndexEntry) ExportResult {
	table := spec.Table
	if table == "" {
		table = "station_index"
	}

	db, err := sql.Open("pgx", spec.DSN)
	if err != nil {
		return failed("postgres", table, err)
	}
	defer db.Close()

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		station_id INTEGER PRIMARY KEY,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		station_name TEXT,
		kind TEXT,
		incoming_trips INTEGER,
		outgoing_trips INTEGER,
		all_trips INTEGER,
		bikes_inbound INTEGER,
		bikes_outbound INTEGER,
		delta_bikes INTEGER,
		delta_trips INTEGER
	)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return failed("postgres", table, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return failed("postgres", table, err)
	}
	insert := fmt.Sprintf(`INSERT INTO %s
		(station_id, latitude, longitude, station_name, kind,
		 incoming_trips, outgoing_trips, all_trips,
		 bikes_inbound, bikes_outbound, delta_bikes, delta_trips)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (station_id) DO UPDATE SET
		 latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude,
		 station_name=EXCLUDED.station_name, kind=EXCLUDED.kind,
		 incoming_trips=EXCLUDED.incoming_trips, outgoing_trips=EXCLUDED.outgoing_trips,
		 all_trips=EXCLUDED.all_trips, bikes_inbound=EXCLUDED.bikes_inbound,
		 bikes_outbound=EXCLUDED.bikes_outbound, delta_bikes=EXCLUDED.delta_bikes,
		 delta_trips=EXCLUDED.delta_trips`, table)
	for _, e := range index {
		if _, err := tx.ExecContext(ctx, insert,
			e.StationID, e.Latitude, e.Longitude, e.Name, e.Kind,
			e.IncomingTrips, e.OutgoingTrips, e.AllTrips,
			e.BikesInbound, e.BikesOutbound, e.DeltaBikes, e.DeltaTrips); err != nil {
			tx.Rollback()
			return failed("postgres", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return failed("postgres", table, err)
	}
	return ExportResult{Type: "postgres", Path: table, RecordCount: len(index), Success: true, ExportedAt: time.Now().UTC()}
}
