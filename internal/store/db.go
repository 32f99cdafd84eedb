package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-station-index/internal/model"
)

var db *sql.DB

// ErrNotInitialized is returned by readers when InitDB was never called. The
// engine itself runs fine without a store; writers silently no-op so tests
// and library callers need no database.
var ErrNotInitialized = errors.New("store: database not initialized")

// InitDB opens the run store and creates its tables.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	tables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			spec TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			error_message TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			level TEXT,
			message TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS stage_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			status TEXT,
			started_at DATETIME,
			finished_at DATETIME,
			records INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS index_entries (
			run_id TEXT,
			station_id INTEGER,
			latitude REAL,
			longitude REAL,
			station_name TEXT,
			kind TEXT,
			incoming_trips INTEGER,
			outgoing_trips INTEGER,
			all_trips INTEGER,
			bikes_inbound INTEGER,
			bikes_outbound INTEGER,
			delta_bikes INTEGER,
			delta_trips INTEGER,
			PRIMARY KEY (run_id, station_id)
		);`,
		`CREATE TABLE IF NOT EXISTS validation_reports (
			run_id TEXT PRIMARY KEY,
			status TEXT,
			report TEXT,
			created_at DATETIME
		);`,
	}
	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the run store.
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// SaveRun stores a new run with its spec.
func SaveRun(runID string, spec model.RunSpec) error {
	if db == nil {
		return nil
	}
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO runs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, specJSON, "pending", now, now)
	return err
}

// UpdateRunStatus updates a run's status.
func UpdateRunStatus(runID, status string) error {
	if db == nil {
		return nil
	}
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), runID)
	return err
}

// SaveRunError records an error for a run.
func SaveRunError(runID string, runErr error) error {
	if db == nil || runErr == nil {
		return nil
	}
	_, err := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, runErr.Error(), time.Now().UTC())
	return err
}

// SaveRunLog records a log line for a run stage.
func SaveRunLog(runID, stage, level, message string) error {
	if db == nil {
		return nil
	}
	_, err := db.Exec(`INSERT INTO run_logs (run_id, stage, level, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, stage, level, message, time.Now().UTC())
	return err
}

// SaveStageProgress records start/completion of a pipeline stage.
func SaveStageProgress(runID, stage, status string, startedAt time.Time, finishedAt *time.Time, records int) error {
	if db == nil {
		return nil
	}
	_, err := db.Exec(`INSERT INTO stage_progress (run_id, stage, status, started_at, finished_at, records) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, status, startedAt, finishedAt, records)
	return err
}

// SaveIndexEntries replaces the stored index for a run. Idempotent: re-saving
// the same run overwrites its previous entries.
func SaveIndexEntries(runID string, entries []model.StationIndexEntry) error {
	if db == nil {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM index_entries WHERE run_id = ?`, runID); err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO index_entries
		(run_id, station_id, latitude, longitude, station_name, kind,
		 incoming_trips, outgoing_trips, all_trips,
		 bikes_inbound, bikes_outbound, delta_bikes, delta_trips)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.Exec(runID, e.StationID, e.Latitude, e.Longitude, e.Name, e.Kind,
			e.IncomingTrips, e.OutgoingTrips, e.AllTrips,
			e.BikesInbound, e.BikesOutbound, e.DeltaBikes, e.DeltaTrips); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveValidationReport stores a run's validation report as JSON.
func SaveValidationReport(runID string, report model.ValidationReport) error {
	if db == nil {
		return nil
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT OR REPLACE INTO validation_reports (run_id, status, report, created_at) VALUES (?, ?, ?, ?)`,
		runID, report.Status, reportJSON, time.Now().UTC())
	return err
}

// ListRuns returns all runs, newest first.
func ListRuns() ([]map[string]interface{}, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}

// GetRun fetches the full run spec and status.
func GetRun(runID string) (map[string]interface{}, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	var specJSON, status string
	var createdAt, updatedAt time.Time
	err := db.QueryRow(`SELECT spec, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&specJSON, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var spec model.RunSpec
	if err := json.Unmarshal([]byte(specJSON), &spec); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"id":        runID,
		"spec":      spec,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// GetIndexEntries returns the stored index for a run, station id ascending.
func GetIndexEntries(runID string) ([]model.StationIndexEntry, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := db.Query(`SELECT station_id, latitude, longitude, station_name, kind,
		incoming_trips, outgoing_trips, all_trips,
		bikes_inbound, bikes_outbound, delta_bikes, delta_trips
		FROM index_entries WHERE run_id = ? ORDER BY station_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.StationIndexEntry
	for rows.Next() {
		var e model.StationIndexEntry
		if err := rows.Scan(&e.StationID, &e.Latitude, &e.Longitude, &e.Name, &e.Kind,
			&e.IncomingTrips, &e.OutgoingTrips, &e.AllTrips,
			&e.BikesInbound, &e.BikesOutbound, &e.DeltaBikes, &e.DeltaTrips); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetValidationReport returns the stored report for a run.
func GetValidationReport(runID string) (model.ValidationReport, error) {
	var report model.ValidationReport
	if db == nil {
		return report, ErrNotInitialized
	}
	var reportJSON string
	if err := db.QueryRow(`SELECT report FROM validation_reports WHERE run_id = ?`, runID).Scan(&reportJSON); err != nil {
		return report, err
	}
	err := json.Unmarshal([]byte(reportJSON), &report)
	return report, err
}

// GetRunErrors returns all recorded errors for a run.
func GetRunErrors(runID string) ([]map[string]interface{}, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := db.Query(`SELECT error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY created_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var msg string
		var createdAt time.Time
		if err := rows.Scan(&msg, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]interface{}{"message": msg, "createdAt": createdAt})
	}
	return out, rows.Err()
}

// GetRunLogs returns all log lines for a run in order.
func GetRunLogs(runID string) ([]map[string]interface{}, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := db.Query(`SELECT stage, level, message, created_at FROM run_logs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var stage, level, msg string
		var createdAt time.Time
		if err := rows.Scan(&stage, &level, &msg, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]interface{}{
			"stage": stage, "level": level, "message": msg, "createdAt": createdAt,
		})
	}
	return out, rows.Err()
}
