package output

import (
	"fmt"
	"strings"

	"github.com/peaql/peaql/plan"
)

const (
	nullCell   = "NULL"
	anonHeader = "<anonymous>"
)

// FormatTable renders r as a fixed-width ASCII table (header, underline,
// rows, trailing row count), the same layout the teacher's REPL prints for
// interactive query results.
func FormatTable(r *plan.Result) string {
	if len(r.Columns) == 0 {
		return ""
	}
	cells := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		c := make([]string, len(row))
		for j, v := range row {
			if v.IsNull() {
				c[j] = nullCell
			} else {
				c[j] = v.String()
			}
		}
		cells[i] = c
	}

	widths := columnWidths(r.Columns, cells)
	header := make([]string, len(r.Columns))
	for i, h := range r.Columns {
		if h == "" {
			header[i] = anonHeader
		} else {
			header[i] = h
		}
	}

	var b strings.Builder
	writeRow(&b, header, widths)
	b.WriteByte('\n')
	for i, w := range widths {
		b.WriteString("-" + strings.Repeat("-", w) + "-")
		if i != len(widths)-1 {
			b.WriteByte('+')
		}
	}
	b.WriteByte('\n')
	for _, row := range cells {
		writeRow(&b, row, widths)
		b.WriteByte('\n')
	}
	if len(r.Rows) == 0 {
		b.WriteString("(0 rows)\n")
	} else if len(r.Rows) == 1 {
		b.WriteString("(1 row)\n")
	} else {
		fmt.Fprintf(&b, "(%d rows)\n", len(r.Rows))
	}
	return b.String()
}

func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		if h == "" {
			widths[i] = len(anonHeader)
		} else {
			widths[i] = len(h)
		}
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	return widths
}

func writeRow(b *strings.Builder, row []string, widths []int) {
	for i, cell := range row {
		fmt.Fprintf(b, " %-*s ", widths[i], cell)
		if i != len(row)-1 {
			b.WriteByte('|')
		}
	}
}
