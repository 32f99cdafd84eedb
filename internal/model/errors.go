package model

import "fmt"

// SchemaError reports malformed or missing input fields. A per-row error
// (Row > 0) is recoverable: the row is dropped and counted. A systemic error
// (Row == 0, e.g. a required column missing from the header) is fatal and
// aborts the run before aggregation.
type SchemaError struct {
	Row    int64
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Systemic() {
		return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("schema error: row %d, column %q: %s", e.Row, e.Column, e.Reason)
}

// Systemic reports whether the error concerns the whole input rather than a
// single row.
func (e *SchemaError) Systemic() bool { return e.Row == 0 }

// CatalogError reports an unusable station catalog: duplicate ids with
// conflicting metadata, or coordinates outside the configured bounding box.
// Always fatal, aborts before aggregation.
type CatalogError struct {
	StationID int
	Reason    string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog error: station %d: %s", e.StationID, e.Reason)
}
