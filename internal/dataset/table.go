// Package dataset holds the tabular types moved between pipeline stages and the
// readers and writers for their file formats.
package dataset

import (
	"fmt"
	"math"

	"pricetier/internal/model"
)

// Table is a raw string table as read from a source file.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index maps each header name to its column position. On duplicate names the
// first occurrence wins.
func (t *Table) Index() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

// Frame is a numeric, row-oriented table with named columns. Missing values are NaN.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]float64
}

// NewFrame creates an empty frame with the given column order.
func NewFrame(columns []string) *Frame {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return &Frame{
		columns: append([]string(nil), columns...),
		index:   idx,
	}
}

// Append adds a row. The row must have one value per column.
func (f *Frame) Append(row []float64) error {
	if len(row) != len(f.columns) {
		return fmt.Errorf("frame: row has %d values, want %d", len(row), len(f.columns))
	}
	f.rows = append(f.rows, append([]float64(nil), row...))
	return nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Row returns row i. The slice must not be modified.
func (f *Frame) Row(i int) []float64 {
	return f.rows[i]
}

// Missing returns the names that are not columns of the frame, in argument order.
func (f *Frame) Missing(names ...string) []string {
	var missing []string
	for _, n := range names {
		if _, ok := f.index[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// Select returns a copy of the named columns, in the order given.
func (f *Frame) Select(names []string) ([][]float64, error) {
	if missing := f.Missing(names...); len(missing) > 0 {
		return nil, &model.MissingColumnsError{Columns: missing}
	}
	pos := make([]int, len(names))
	for j, n := range names {
		pos[j] = f.index[n]
	}
	out := make([][]float64, len(f.rows))
	for i, row := range f.rows {
		sel := make([]float64, len(pos))
		for j, p := range pos {
			sel[j] = row[p]
		}
		out[i] = sel
	}
	return out, nil
}

// DropMissing returns a new frame without the rows that hold a NaN in any column,
// plus the number of rows removed.
func (f *Frame) DropMissing() (*Frame, int) {
	out := NewFrame(f.columns)
	dropped := 0
	for _, row := range f.rows {
		if hasNaN(row) {
			dropped++
			continue
		}
		out.rows = append(out.rows, row)
	}
	return out, dropped
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
