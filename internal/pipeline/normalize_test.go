package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-station-index/internal/model"
	"go-station-index/internal/pipeline"
)

func rawTripRow(overrides map[string]string) model.RawRow {
	row := model.RawRow{
		"start station id": "72",
		"end station id":   "505",
		"starttime":        "2019-07-01 00:01:23",
		"stoptime":         "2019-07-01 00:15:40",
		"bikeid":           "31956",
		"usertype":         "Subscriber",
		"birth year":       "1989",
		"gender":           "1",
	}
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

func TestNormalizer_ValidRow(t *testing.T) {
	n := pipeline.NewNormalizer(model.Schema{})

	rec, err := n.Normalize(rawTripRow(nil), 1)

	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, 72, rec.StartStationID)
	assert.Equal(t, 505, rec.EndStationID)
	assert.Equal(t, 31956, rec.BikeID)
	assert.Equal(t, "Subscriber", rec.UserType)
	assert.Equal(t, time.Date(2019, 7, 1, 0, 1, 23, 0, time.UTC), rec.StartTime)
	require.NotNil(t, rec.BirthYear)
	assert.Equal(t, 1989, *rec.BirthYear)
	assert.Equal(t, 1, rec.Gender)
}

func TestNormalizer_BadTimestampDropsRow(t *testing.T) {
	n := pipeline.NewNormalizer(model.Schema{})

	_, err := n.Normalize(rawTripRow(map[string]string{"starttime": "not a time"}), 7)

	var schemaErr *model.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.False(t, schemaErr.Systemic())
	assert.Equal(t, int64(7), schemaErr.Row)

	stats := n.Stats()
	assert.Equal(t, int64(1), stats.RawRows)
	assert.Equal(t, int64(1), stats.Skipped[pipeline.SkipBadStartTime])
}

func TestNormalizer_NonNumericStationIDDropsRow(t *testing.T) {
	n := pipeline.NewNormalizer(model.Schema{})

	_, err := n.Normalize(rawTripRow(map[string]string{"end station id": "NULL"}), 2)

	require.Error(t, err)
	assert.Equal(t, int64(1), n.Stats().Skipped[pipeline.SkipBadStationID])
}

func TestNormalizer_MissingFieldDropsRow(t *testing.T) {
	n := pipeline.NewNormalizer(model.Schema{})

	_, err := n.Normalize(rawTripRow(map[string]string{"bikeid": "  "}), 3)

	require.Error(t, err)
	assert.Equal(t, int64(1), n.Stats().Skipped[pipeline.SkipMissingField])
}

func TestNormalizer_OptionalDemographicsNeverDropRow(t *testing.T) {
	n := pipeline.NewNormalizer(model.Schema{})

	rec, err := n.Normalize(rawTripRow(map[string]string{"birth year": `\N`, "gender": "oops"}), 1)

	require.NoError(t, err)
	assert.Nil(t, rec.BirthYear)
	assert.Equal(t, 0, rec.Gender)
	assert.Equal(t, int64(0), n.Stats().Total())
}

func TestNormalizer_TemporalViolationIsKept(t *testing.T) {
	// Rows that parse but run backwards in time are a validation concern,
	// not a normalization one: they stay in the trip set.
	n := pipeline.NewNormalizer(model.Schema{})

	rec, err := n.Normalize(rawTripRow(map[string]string{
		"starttime": "2019-07-01 10:00:00",
		"stoptime":  "2019-07-01 09:00:00",
	}), 4)

	require.NoError(t, err)
	assert.Negative(t, rec.Duration())
	assert.Equal(t, int64(0), n.Stats().Total())
}

func TestNormalizer_CheckHeader(t *testing.T) {
	n := pipeline.NewNormalizer(model.Schema{})

	err := n.CheckHeader([]string{
		"start station id", "end station id", "starttime", "stoptime", "bikeid", "usertype",
	})
	assert.NoError(t, err)

	err = n.CheckHeader([]string{"start station id", "starttime", "stoptime", "bikeid", "usertype"})
	var schemaErr *model.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.True(t, schemaErr.Systemic())
	assert.Equal(t, "end station id", schemaErr.Column)
}

func TestNormalizer_CustomSchema(t *testing.T) {
	n := pipeline.NewNormalizer(model.Schema{
		StartStationID: "from",
		EndStationID:   "to",
		StartTime:      "began",
		StopTime:       "ended",
		BikeID:         "bike",
		UserType:       "member",
		TimeLayouts:    []string{"02/01/2006 15:04"},
	})

	rec, err := n.Normalize(model.RawRow{
		"from":   "10",
		"to":     "20",
		"began":  "01/07/2019 08:30",
		"ended":  "01/07/2019 08:45",
		"bike":   "555",
		"member": "Customer",
	}, 1)

	require.NoError(t, err)
	assert.Equal(t, 10, rec.StartStationID)
	assert.Equal(t, 20, rec.EndStationID)
	assert.Equal(t, 555, rec.BikeID)
	assert.Equal(t, "Customer", rec.UserType)
	assert.Equal(t, 15*time.Minute, rec.Duration())
}
