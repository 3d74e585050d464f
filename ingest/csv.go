// Package ingest reads tabular uploads into the row shape the normalization
// schemas consume.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/usps-dataeng/versionone-dashboard/pipeline"
)

// ReadCSV parses a CSV stream into rows keyed by the header line. Header
// cells are trimmed; rows shorter than the header leave the trailing
// columns absent rather than empty, so schema defaults apply.
func ReadCSV(r io.Reader) ([]pipeline.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []pipeline.Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(rows)+1, err)
		}
		row := make(pipeline.Row, len(header))
		for i, cell := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			row[header[i]] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}
