package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table defines tabular export content shared by the CSV and PDF renderers.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderCSV produces CSV encoded bytes for the table. The title is not
// rendered; CSV output carries headers and rows only.
func RenderCSV(table Table) ([]byte, error) {
	if len(table.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(table.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range table.Rows {
		record := make([]string, len(table.Headers))
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
