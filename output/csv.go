// Package output formats a plan.Result for display or export, grounded on
// the teacher's own output formatters (output/csv.go, output/json.go) but
// adapted to a Result's already-ordered column vector instead of a slice of
// column-name maps, so there's no need to collect/sort a union of keys first.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/peaql/peaql/plan"
)

// WriteCSV writes r as CSV: a header row of column names followed by one row
// per result row. DML results with no Columns (AffectedRows only) write
// nothing.
func WriteCSV(w io.Writer, r *plan.Result) error {
	if len(r.Columns) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return err
	}
	record := make([]string, len(r.Columns))
	for _, row := range r.Rows {
		for i, v := range row {
			record[i] = formatCell(v.String(), v.IsNull())
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("output: failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatCell sanitizes against CSV/formula injection: a leading =, +, -, @,
// tab, carriage return, newline, or pipe is escaped by prefixing a single
// quote and doubling embedded single quotes, the
// same rule the teacher's formatValue applies before handing a cell to a
// spreadsheet-reading consumer.
func formatCell(s string, isNull bool) string {
	if isNull {
		return ""
	}
	if len(s) > 0 {
		switch s[0] {
		case '=', '+', '-', '@', '\t', '\r', '\n', '|':
			return "'" + strings.ReplaceAll(s, "'", "''")
		}
	}
	return s
}
