package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go-station-index/internal/model"
)

// ------------------- Ingestion -------------------

// The download/unzip step that produces these files is a collaborator, not
// part of the engine: ingestion only reads delimited text from a local path
// or an already-published HTTP URL.

// Row pairs a raw row with its 1-based position in the source, which becomes
// the trip identifier used in validation reports.
type Row struct {
	Num    int64
	Fields model.RawRow
}

const (
	fetchAttempts = 3
	fetchBackoff  = 2 * time.Second
)

// openSource opens a local file or fetches an HTTP URL. HTTP fetches get a
// small bounded retry: trip archives are served from object storage that
// occasionally hiccups.
func openSource(ctx context.Context, src model.Source) (io.ReadCloser, error) {
	if !strings.HasPrefix(src.URL, "http") {
		f, err := os.Open(src.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open source file: %w", err)
		}
		return f, nil
	}

	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}
		if err != nil {
			lastErr = err
		} else {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %s", resp.Status)
		}
		fmt.Printf("➡️ Fetch attempt %d/%d for %s failed: %v\n", attempt, fetchAttempts, src.URL, lastErr)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(fetchBackoff * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("failed to GET %s after %d attempts: %w", src.URL, fetchAttempts, lastErr)
}

func newCSVReader(r io.Reader, src model.Source) *csv.Reader {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	if src.Delimiter != "" {
		cr.Comma = rune(src.Delimiter[0])
	}
	return cr
}

// StreamTrips reads the trip source and emits header-mapped raw rows on out.
// checkHeader runs against the cleaned header before any row is emitted; its
// error (a systemic SchemaError) aborts the stream. Individual unreadable
// lines are reported through onBadLine and skipped. Closes out on return.
func StreamTrips(ctx context.Context, src model.Source, checkHeader func([]string) error, out chan<- Row, onBadLine func()) error {
	defer close(out)

	body, err := openSource(ctx, src)
	if err != nil {
		return err
	}
	defer body.Close()

	cr := newCSVReader(body, src)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("failed to read trip header: %w", err)
	}
	for i, h := range header {
		header[i] = cleanHeader(h)
	}
	if err := checkHeader(header); err != nil {
		return err
	}

	var rowNum int64
	for {
		record, err := cr.Read()
		if err == io.EOF {
			fmt.Printf("📄 Trip ingestion done: %d rows read from %s\n", rowNum, src.URL)
			return nil
		}
		if err != nil {
			onBadLine()
			continue
		}
		rowNum++

		fields := make(model.RawRow, len(header))
		for i, h := range header {
			if i < len(record) {
				fields[h] = record[i]
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- Row{Num: rowNum, Fields: fields}:
			if rowNum%50000 == 0 {
				fmt.Printf("📄 Trips: read %d rows from %s\n", rowNum, src.URL)
			}
		}
	}
}

// LoadCatalog reads the whole station source into a Catalog. Any broken row,
// out-of-box coordinate or conflicting duplicate is fatal: aggregating
// against a dubious catalog would produce a meaningless index.
func LoadCatalog(ctx context.Context, src model.Source, bounds model.Bounds) (*Catalog, error) {
	body, err := openSource(ctx, src)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	cr := newCSVReader(body, src)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read station header: %w", err)
	}
	for i, h := range header {
		header[i] = cleanHeader(h)
	}

	cat := NewCatalog(bounds)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := cr.Read()
		if err == io.EOF {
			fmt.Printf("🗺️ Station catalog loaded: %d stations from %s\n", cat.Len(), src.URL)
			return cat, nil
		}
		if err != nil {
			return nil, fmt.Errorf("station catalog read error: %w", err)
		}

		fields := make(model.RawRow, len(header))
		for i, h := range header {
			if i < len(record) {
				fields[h] = record[i]
			}
		}
		st, err := ParseStationRow(fields)
		if err != nil {
			return nil, err
		}
		if err := cat.Add(st); err != nil {
			return nil, err
		}
	}
}
