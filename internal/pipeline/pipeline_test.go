package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-station-index/internal/model"
	"go-station-index/internal/pipeline"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runSpec(t *testing.T) model.RunSpec {
	dir := t.TempDir()
	tripsPath := writeFile(t, dir, "trips.csv",
		`"starttime","stoptime","start station id","end station id","bikeid","usertype","birth year","gender"
2019-07-01 00:01:23,2019-07-01 00:15:40,72,505,100,Subscriber,1989,1
2019-07-01 00:02:00,2019-07-01 00:20:00,72,72,101,Customer,,0
2019-07-01 00:03:00,2019-07-01 00:30:00,505,99,102,Subscriber,1975,2
2019-07-01 00:04:00,garbage,505,72,103,Subscriber,1990,1
`)
	stationsPath := writeFile(t, dir, "stations.csv",
		`station id,latitude,longitude,station name,kind
72,40.767,-73.994,W 52 St & 11 Ave,active
505,40.749,-73.988,6 Ave & W 33 St,active
300,40.700,-74.000,Idle Dock,inactive
`)
	return model.RunSpec{
		Trips:                 model.Source{Type: "csv", URL: tripsPath},
		Stations:              model.Source{Type: "csv", URL: stationsPath},
		Bounds:                testBounds,
		MaxTripDuration:       "24h",
		CompletenessThreshold: 0.5,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	res, err := pipeline.Run(context.Background(), "run-e2e", runSpec(t))
	require.NoError(t, err)

	// One of four rows has a garbage stoptime.
	assert.Equal(t, int64(4), res.Stats.RawRows)
	assert.Equal(t, int64(1), res.Stats.Total())

	// Catalog stations 72, 300, 505 plus the unknown 99 from a trip.
	require.Len(t, res.Index, 4)
	byID := make(map[int]model.StationIndexEntry)
	for _, e := range res.Index {
		byID[e.StationID] = e
	}
	assert.Equal(t, 2, byID[72].OutgoingTrips)
	assert.Equal(t, 1, byID[72].IncomingTrips)
	assert.Equal(t, 3, byID[72].AllTrips)
	assert.Equal(t, model.KindUnknown, byID[99].Kind)
	assert.Equal(t, 1, byID[99].IncomingTrips)
	assert.Zero(t, byID[300].AllTrips)

	// Station 99 is unresolved, so the report fails on referential integrity
	// while the index is still produced.
	assert.Equal(t, model.StatusFail, res.Report.Status)
	assert.Contains(t, res.Report.Failed, pipeline.CheckReferential)
	assert.Equal(t, model.StatusPass, res.Report.Checks[pipeline.CheckCompleteness].Status)
}

func TestRun_MissingColumnIsFatal(t *testing.T) {
	spec := runSpec(t)
	dir := t.TempDir()
	spec.Trips.URL = writeFile(t, dir, "trips.csv",
		`starttime,stoptime,start station id,bikeid,usertype
2019-07-01 00:01:23,2019-07-01 00:15:40,72,100,Subscriber
`)

	_, err := pipeline.Run(context.Background(), "run-bad-header", spec)

	var schemaErr *model.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.True(t, schemaErr.Systemic())
}

func TestRun_ConflictingCatalogIsFatal(t *testing.T) {
	spec := runSpec(t)
	dir := t.TempDir()
	spec.Stations.URL = writeFile(t, dir, "stations.csv",
		`station id,latitude,longitude,station name,kind
72,40.767,-73.994,W 52 St & 11 Ave,active
72,40.700,-73.994,Somewhere Else,active
`)

	_, err := pipeline.Run(context.Background(), "run-bad-catalog", spec)

	var catErr *model.CatalogError
	require.ErrorAs(t, err, &catErr)
}
