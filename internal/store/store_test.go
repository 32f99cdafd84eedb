package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-station-index/internal/model"
	"go-station-index/internal/store"
)

func initStore(t *testing.T) {
	t.Helper()
	require.NoError(t, store.InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { store.Close() })
}

func sampleSpec() model.RunSpec {
	return model.RunSpec{
		Trips:    model.Source{Type: "csv", URL: "trips.csv"},
		Stations: model.Source{Type: "csv", URL: "stations.csv"},
	}
}

func TestStore_RunLifecycle(t *testing.T) {
	initStore(t)

	require.NoError(t, store.SaveRun("run-1", sampleSpec()))
	require.NoError(t, store.UpdateRunStatus("run-1", "completed"))

	run, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", run["status"])

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0]["id"])
}

func TestStore_IndexEntriesRoundtrip(t *testing.T) {
	initStore(t)
	require.NoError(t, store.SaveRun("run-1", sampleSpec()))

	entries := []model.StationIndexEntry{
		{StationID: 72, Latitude: 40.767, Longitude: -73.994, Name: "W 52 St & 11 Ave",
			Kind: model.KindActive, IncomingTrips: 1, OutgoingTrips: 2, AllTrips: 3,
			BikesInbound: 1, BikesOutbound: 2, DeltaBikes: 1, DeltaTrips: 1},
		{StationID: 99, Kind: model.KindUnknown, IncomingTrips: 1, AllTrips: 1, DeltaTrips: -1, BikesInbound: 1, DeltaBikes: -1},
	}
	require.NoError(t, store.SaveIndexEntries("run-1", entries))
	// Re-saving must overwrite, not duplicate.
	require.NoError(t, store.SaveIndexEntries("run-1", entries))

	got, err := store.GetIndexEntries("run-1")
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestStore_ValidationReportRoundtrip(t *testing.T) {
	initStore(t)

	report := model.ValidationReport{
		Status: model.StatusFail,
		Failed: []string{"referential_integrity"},
		Checks: map[string]model.CheckResult{
			"referential_integrity": {Name: "referential_integrity", Status: model.StatusFail},
		},
	}
	require.NoError(t, store.SaveValidationReport("run-1", report))

	got, err := store.GetValidationReport("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFail, got.Status)
	assert.Equal(t, []string{"referential_integrity"}, got.Failed)
}

func TestStore_ErrorsAndLogs(t *testing.T) {
	initStore(t)

	require.NoError(t, store.SaveRunError("run-1", assert.AnError))
	require.NoError(t, store.SaveRunLog("run-1", "normalize", "info", "normalized 10 rows"))

	errs, err := store.GetRunErrors("run-1")
	require.NoError(t, err)
	require.Len(t, errs, 1)

	logs, err := store.GetRunLogs("run-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "normalize", logs[0]["stage"])
}

func TestStore_WritesNoopWithoutInit(t *testing.T) {
	assert.NoError(t, store.SaveRun("run-x", sampleSpec()))
	assert.NoError(t, store.UpdateRunStatus("run-x", "running"))
	_, err := store.ListRuns()
	assert.ErrorIs(t, err, store.ErrNotInitialized)
}
