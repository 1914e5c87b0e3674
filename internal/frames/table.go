// Package frames holds the parsed, validated frame time-series for one
// collection session and knows how to export it as CSV.
package frames

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/solarblue/frametrics/internal/errors"
)

// SurfaceFlingerHeader is the fixed column set of the latency-trace format.
var SurfaceFlingerHeader = []string{
	"desired_present_time",
	"actual_present_time",
	"frame_ready_time",
}

// Table is an ordered sequence of frame rows sharing one header. Rows are
// appended in arrival order; every row has exactly len(Header()) values.
type Table struct {
	header []string
	rows   [][]int64
}

// NewTable creates an empty table for the given session header.
func NewTable(header []string) *Table {
	return &Table{header: header}
}

// Header returns the session's column names.
func (t *Table) Header() []string {
	return t.header
}

// Len returns the number of stored frames.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns the stored frames in arrival order.
func (t *Table) Rows() [][]int64 {
	return t.rows
}

// Append adds one frame row. The row's arity must match the header.
func (t *Table) Append(row []int64) error {
	if len(row) != len(t.header) {
		return fmt.Errorf("frame has %d values, header has %d columns", len(row), len(t.header))
	}
	t.rows = append(t.rows, row)
	return nil
}

// Write exports the table as CSV to w. If columns is nil the full header
// and all rows are emitted in natural order. Otherwise every requested
// column must exist in the header and the output is projected onto the
// requested columns in the requested order.
func (t *Table) Write(w io.Writer, columns []string) error {
	header := t.header
	rows := t.rows

	if columns != nil {
		indexes := make([]int, 0, len(columns))
		for _, c := range columns {
			idx := index(t.header, c)
			if idx < 0 {
				return errors.InvalidColumnError{Column: c, Valid: t.header}
			}
			indexes = append(indexes, idx)
		}
		projected := make([][]int64, len(t.rows))
		for i, row := range t.rows {
			p := make([]int64, len(indexes))
			for j, idx := range indexes {
				p[j] = row[idx]
			}
			projected[i] = p
		}
		header = columns
		rows = projected
	}

	cw := csv.NewWriter(w)
	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, strconv.FormatInt(v, 10))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile exports the table to the named file, creating or truncating it.
func (t *Table) WriteFile(outfile string, columns []string) error {
	f, err := os.Create(outfile)
	if err != nil {
		return fmt.Errorf("creating frame output file: %w", err)
	}
	if err := t.Write(f, columns); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func index(haystack []string, needle string) int {
	for i, s := range haystack {
		if s == needle {
			return i
		}
	}
	return -1
}
