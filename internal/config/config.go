// Package config loads run specs (YAML or JSON) and API environment
// configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-station-index/internal/model"
)

var validate = validator.New()

// Default bounding box: New York City, where the trip data comes from.
var defaultBounds = model.Bounds{
	MinLat: 40.4, MaxLat: 41.1,
	MinLon: -74.3, MaxLon: -73.6,
}

const (
	defaultMaxTripDuration       = "24h"
	defaultCompletenessThreshold = 0.99
)

// LoadRunSpec reads a run spec file, YAML or JSON by extension, applies
// defaults and validates it.
func LoadRunSpec(path string) (model.RunSpec, error) {
	var spec model.RunSpec

	data, err := os.ReadFile(path)
	if err != nil {
		return spec, fmt.Errorf("failed to read run spec: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &spec)
	default:
		err = json.Unmarshal(data, &spec)
	}
	if err != nil {
		return spec, fmt.Errorf("failed to parse run spec: %w", err)
	}

	ApplyDefaults(&spec)
	if err := ValidateSpec(&spec); err != nil {
		return spec, err
	}
	return spec, nil
}

// ParseRunSpec decodes a JSON run spec (the API payload), applies defaults
// and validates it.
func ParseRunSpec(data []byte) (model.RunSpec, error) {
	var spec model.RunSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("failed to parse run spec: %w", err)
	}
	ApplyDefaults(&spec)
	if err := ValidateSpec(&spec); err != nil {
		return spec, err
	}
	return spec, nil
}

// ApplyDefaults fills the configuration surface the spec left empty.
func ApplyDefaults(spec *model.RunSpec) {
	if spec.Bounds == (model.Bounds{}) {
		spec.Bounds = defaultBounds
	}
	if spec.MaxTripDuration == "" {
		spec.MaxTripDuration = defaultMaxTripDuration
	}
	if spec.CompletenessThreshold == 0 {
		spec.CompletenessThreshold = defaultCompletenessThreshold
	}
	if spec.Trips.Type == "" {
		spec.Trips.Type = "csv"
	}
	if spec.Stations.Type == "" {
		spec.Stations.Type = "csv"
	}
}

// ValidateSpec runs struct validation over a run spec.
func ValidateSpec(spec *model.RunSpec) error {
	if err := validate.Struct(spec); err != nil {
		return fmt.Errorf("invalid run spec: %w", err)
	}
	return nil
}

// APIConfig is the environment configuration of the API binary.
type APIConfig struct {
	Addr           string
	DBPath         string
	OutputDir      string
	MetricsEnabled bool
}

// LoadAPI reads API configuration from .env and the environment.
func LoadAPI() (*APIConfig, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &APIConfig{
		Addr:      getenvDefault("STATIONINDEX_ADDR", ":8080"),
		DBPath:    getenvDefault("STATIONINDEX_DB", "stationindex.db"),
		OutputDir: getenvDefault("STATIONINDEX_OUTPUT_DIR", "exports"),
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv("STATIONINDEX_METRICS"))) {
	case "", "1", "true", "t", "yes", "y", "on":
		cfg.MetricsEnabled = true
	default:
		cfg.MetricsEnabled = false
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
