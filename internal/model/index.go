package model

// StationIndexEntry is the per-station activity record derived from the trip
// stream. Constructed by the index builder, immutable once emitted.
//
// AllTrips == IncomingTrips + OutgoingTrips and
// DeltaTrips == OutgoingTrips - IncomingTrips hold for every entry; the
// conservation check re-derives both.
type StationIndexEntry struct {
	StationID     int     `json:"station_id"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Name          string  `json:"station_name"`
	Kind          string  `json:"kind"`
	IncomingTrips int     `json:"incoming_trips"`
	OutgoingTrips int     `json:"outgoing_trips"`
	AllTrips      int     `json:"all_trips"`
	BikesInbound  int     `json:"bikes_inbound"`
	BikesOutbound int     `json:"bikes_outbound"`
	DeltaBikes    int     `json:"delta_bikes"` // outbound distinct - inbound distinct
	DeltaTrips    int     `json:"delta_trips"` // outgoing - incoming
}

// Check statuses.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// CheckResult is the outcome of a single validation check.
type CheckResult struct {
	Name    string                 `json:"name"`
	Status  string                 `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationReport maps check names to results. Created once per run, never
// mutated after creation. Status is "pass" only when every check passed.
type ValidationReport struct {
	Status string                 `json:"status"`
	Failed []string               `json:"failed,omitempty"`
	Checks map[string]CheckResult `json:"checks"`
}
