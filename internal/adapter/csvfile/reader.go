// Package csvfile reads source measurements from CSV and exports the
// analysis tables back to CSV.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/airquality-etl/internal/domain"
)

// Reader loads a source CSV file. It implements pipeline.Extractor.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for the CSV file at path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Extract reads the whole file into a RawTable.
func (r *Reader) Extract(ctx context.Context) (domain.RawTable, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	table, err := ReadTable(ctx, f)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("read %s: %w", r.path, err)
	}
	r.logger.Info("source loaded", "path", r.path, "rows", len(table.Rows), "columns", len(table.Headers))
	return table, nil
}

// ReadTable parses CSV with a header row. Rows with a different field count
// than the header are kept with missing fields empty, so they are dropped
// later by normalization rather than failing the whole read. A repeated
// header name keeps its first column, the one ColumnMapping.Resolve picks.
func ReadTable(ctx context.Context, r io.Reader) (domain.RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.RawTable{}, errors.New("empty file: no header row")
	}
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("read header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	var rows []domain.RawRow
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return domain.RawTable{}, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.RawTable{}, fmt.Errorf("line %d: %w", line, err)
		}
		row := make(domain.RawRow, len(headers))
		for i, h := range headers {
			if _, seen := row[h]; seen || i >= len(rec) {
				continue
			}
			row[h] = rec[i]
		}
		rows = append(rows, row)
	}
	return domain.RawTable{Headers: headers, Rows: rows}, nil
}
