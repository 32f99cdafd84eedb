package model

import "time"

// RawRow is a single header-keyed row from a delimited source, before
// normalization. Values are the raw cell strings.
type RawRow map[string]string

// TripRecord is the canonical typed form of a single trip row. Created once
// during normalization and never mutated afterwards.
type TripRecord struct {
	ID             int64     `json:"id"` // 1-based row index within the trip source
	StartStationID int       `json:"start_station_id"`
	EndStationID   int       `json:"end_station_id"`
	StartTime      time.Time `json:"start_time"`
	StopTime       time.Time `json:"stop_time"`
	BikeID         int       `json:"bike_id"`
	UserType       string    `json:"user_type"` // "Subscriber" or "Customer"
	BirthYear      *int      `json:"birth_year,omitempty"`
	Gender         int       `json:"gender"` // 0=unknown, 1=male, 2=female
}

// Duration is stop minus start. Negative when the row is temporally incoherent.
func (t TripRecord) Duration() time.Duration {
	return t.StopTime.Sub(t.StartTime)
}

// Station kinds as they appear in the catalog source. KindUnknown marks index
// entries for station ids referenced by trips but absent from the catalog.
const (
	KindActive   = "active"
	KindInactive = "inactive"
	KindUnknown  = "unknown"
)

// Station is one catalog entry. Read-only during a run.
type Station struct {
	ID        int     `json:"station_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"station_name"`
	Kind      string  `json:"kind"`
}

// Source describes a delimited-text data source for the pipeline (local file
// path or HTTP URL).
type Source struct {
	Type      string `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=csv"`
	URL       string `json:"url" yaml:"url" validate:"required"`
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty" validate:"omitempty,len=1"`
}

// Schema maps the canonical trip fields onto source column names. Empty
// fields fall back to the Citi Bike export names.
type Schema struct {
	StartStationID string   `json:"startStationId,omitempty" yaml:"startStationId,omitempty"`
	EndStationID   string   `json:"endStationId,omitempty" yaml:"endStationId,omitempty"`
	StartTime      string   `json:"startTime,omitempty" yaml:"startTime,omitempty"`
	StopTime       string   `json:"stopTime,omitempty" yaml:"stopTime,omitempty"`
	BikeID         string   `json:"bikeId,omitempty" yaml:"bikeId,omitempty"`
	UserType       string   `json:"userType,omitempty" yaml:"userType,omitempty"`
	BirthYear      string   `json:"birthYear,omitempty" yaml:"birthYear,omitempty"`
	Gender         string   `json:"gender,omitempty" yaml:"gender,omitempty"`
	TimeLayouts    []string `json:"timeLayouts,omitempty" yaml:"timeLayouts,omitempty"`
}

// Bounds is the geographic bounding box station coordinates must fall inside.
type Bounds struct {
	MinLat float64 `json:"minLat" yaml:"minLat" validate:"gte=-90,lte=90,ltefield=MaxLat"`
	MaxLat float64 `json:"maxLat" yaml:"maxLat" validate:"gte=-90,lte=90"`
	MinLon float64 `json:"minLon" yaml:"minLon" validate:"gte=-180,lte=180,ltefield=MaxLon"`
	MaxLon float64 `json:"maxLon" yaml:"maxLon" validate:"gte=-180,lte=180"`
}

// Contains reports whether the point lies inside the box (inclusive).
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Export defines export targets for the built index. All fields optional; an
// empty Export writes a default CSV under the output directory.
type Export struct {
	CSV   string `json:"csv,omitempty" yaml:"csv,omitempty"`
	JSON  string `json:"json,omitempty" yaml:"json,omitempty"`
	DB    string `json:"db,omitempty" yaml:"db,omitempty" validate:"omitempty,oneof=sqlite postgres"`
	DSN   string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
}

// Workers defines worker counts per pipeline stage.
type Workers struct {
	Normalize   int `json:"normalize,omitempty" yaml:"normalize,omitempty" validate:"gte=0"`
	Aggregation int `json:"aggregation,omitempty" yaml:"aggregation,omitempty" validate:"gte=0"`
}

// Concurrency holds worker and channel options for a run.
type Concurrency struct {
	Workers           Workers `json:"workers,omitempty" yaml:"workers,omitempty"`
	ChannelBufferSize int     `json:"channelBufferSize,omitempty" yaml:"channelBufferSize,omitempty" validate:"gte=0"`
	RunTimeout        string  `json:"runTimeout,omitempty" yaml:"runTimeout,omitempty"`
}

// RunSpec defines an entire engine run: sources, schema, validation knobs,
// export targets and concurrency options.
type RunSpec struct {
	Trips                 Source      `json:"trips" yaml:"trips" validate:"required"`
	Stations              Source      `json:"stations" yaml:"stations" validate:"required"`
	Schema                Schema      `json:"schema,omitempty" yaml:"schema,omitempty"`
	Bounds                Bounds      `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	MaxTripDuration       string      `json:"maxTripDuration,omitempty" yaml:"maxTripDuration,omitempty"`
	CompletenessThreshold float64     `json:"completenessThreshold,omitempty" yaml:"completenessThreshold,omitempty" validate:"gte=0,lte=1"`
	Export                *Export     `json:"export,omitempty" yaml:"export,omitempty"`
	Concurrency           Concurrency `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}
