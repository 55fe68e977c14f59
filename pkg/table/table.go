// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package table decodes archive members into column-oriented tables.
package table

import "sort"

// Table holds named columns of equal length. Cells are nil (missing),
// int64, float64, bool, string, or nested JSON values (map[string]any,
// []any).
type Table struct {
	columns []string
	index   map[string]int
	cells   [][]any // cells[column][row]
	rows    int
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	i := len(t.columns)
	t.columns = append(t.columns, name)
	t.index[name] = i
	t.cells = append(t.cells, make([]any, t.rows))
	return i
}

// AppendRow adds one row. Unknown keys add columns (in sorted key order),
// back-filled with nil; columns absent from row get nil.
func (t *Table) AppendRow(row map[string]any) {
	keys := make([]string, 0, len(row))
	for name := range row {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = row[k]
	}
	t.appendPairs(keys, values)
}

// appendPairs adds one row given as parallel key and value slices, adding
// unknown columns in key order. A repeated key keeps its last value.
func (t *Table) appendPairs(keys []string, values []any) {
	for i, k := range keys {
		c := t.addColumn(k)
		if len(t.cells[c]) == t.rows {
			t.cells[c] = append(t.cells[c], values[i])
		} else {
			t.cells[c][t.rows] = values[i]
		}
	}
	for c := range t.columns {
		if len(t.cells[c]) == t.rows {
			t.cells[c] = append(t.cells[c], nil)
		}
	}
	t.rows++
}

// Columns returns column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]any, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cells[i], true
}

// Value returns one cell, or nil when the row or column does not exist.
func (t *Table) Value(row int, column string) any {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= t.rows {
		return nil
	}
	return t.cells[i][row]
}

// Row returns row i keyed by column name.
func (t *Table) Row(i int) map[string]any {
	if i < 0 || i >= t.rows {
		return nil
	}
	row := make(map[string]any, len(t.columns))
	for c, name := range t.columns {
		row[name] = t.cells[c][i]
	}
	return row
}

// Records returns every row in insertion order.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, t.rows)
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

// Head returns a table holding the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n > t.rows {
		n = t.rows
	}
	h := New(t.columns...)
	for c := range t.columns {
		h.cells[c] = append(h.cells[c][:0], t.cells[c][:n]...)
	}
	h.rows = n
	return h
}
