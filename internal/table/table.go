// Package table implements the canonical time-indexed table every data
// source is reshaped into.
//
// A Table has a unique, ascending index of UTC instants and named columns
// whose cells are Values. Columns are kept sorted by name so that output
// order never depends on merge order.
//
// Tables are immutable once built: OuterJoin and Concat return new tables
// and never modify their inputs.
package table

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrLengthMismatch is returned when an index and its values differ in length.
var ErrLengthMismatch = errors.New("index and values differ in length")

// Table is an ordered set of rows keyed by unique UTC instants.
type Table struct {
	index   []time.Time
	columns []string
	cells   map[string][]Value
}

// New returns an empty table with no rows and no columns.
func New() *Table {
	return &Table{cells: map[string][]Value{}}
}

// FromSeries builds a single-column table. The index is converted to UTC and
// sorted; when an instant repeats, the first reading is kept.
func FromSeries(name string, index []time.Time, values []Value) (*Table, error) {
	if len(index) != len(values) {
		return nil, fmt.Errorf("%w: %s has %d instants and %d values", ErrLengthMismatch, name, len(index), len(values))
	}

	order := make([]int, len(index))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return index[order[a]].Before(index[order[b]])
	})

	t := &Table{
		index:   make([]time.Time, 0, len(index)),
		columns: []string{name},
		cells:   map[string][]Value{},
	}
	col := make([]Value, 0, len(index))
	for _, i := range order {
		ts := index[i].UTC()
		if n := len(t.index); n > 0 && t.index[n-1].Equal(ts) {
			continue
		}
		t.index = append(t.index, ts)
		col = append(col, values[i])
	}
	t.cells[name] = col
	return t, nil
}

// FromRow builds a one-row table.
func FromRow(ts time.Time, cells map[string]Value) *Table {
	t := &Table{
		index: []time.Time{ts.UTC()},
		cells: make(map[string][]Value, len(cells)),
	}
	for name, v := range cells {
		t.columns = append(t.columns, name)
		t.cells[name] = []Value{v}
	}
	sort.Strings(t.columns)
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.columns)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Columns returns the column names in canonical order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

// Index returns the row instants, ascending.
func (t *Table) Index() []time.Time {
	if t == nil {
		return nil
	}
	return append([]time.Time(nil), t.index...)
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	if t == nil {
		return nil, false
	}
	col, ok := t.cells[name]
	if !ok {
		return nil, false
	}
	return append([]Value(nil), col...), true
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.cells[name]
	return ok
}

// At returns the cell at row i of the named column, or null.
func (t *Table) At(i int, name string) Value {
	if t == nil || i < 0 || i >= len(t.index) {
		return Value{}
	}
	col, ok := t.cells[name]
	if !ok {
		return Value{}
	}
	return col[i]
}

// Row returns the instant and the cells of row i.
func (t *Table) Row(i int) (time.Time, map[string]Value) {
	row := make(map[string]Value, len(t.columns))
	for _, name := range t.columns {
		row[name] = t.cells[name][i]
	}
	return t.index[i], row
}

// Lookup returns the row holding ts.
func (t *Table) Lookup(ts time.Time) (int, bool) {
	if t == nil {
		return 0, false
	}
	i := sort.Search(len(t.index), func(i int) bool {
		return !t.index[i].Before(ts)
	})
	if i < len(t.index) && t.index[i].Equal(ts) {
		return i, true
	}
	return 0, false
}

// Equal reports whether both tables have the same index, columns and cells.
func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() || t.Width() != o.Width() {
		return false
	}
	for i := range t.Index() {
		if !t.index[i].Equal(o.index[i]) {
			return false
		}
	}
	for i, name := range t.Columns() {
		if o.columns[i] != name {
			return false
		}
		a, b := t.cells[name], o.cells[name]
		for r := range a {
			if !a[r].Equal(b[r]) {
				return false
			}
		}
	}
	return true
}

// OuterJoin merges a and b on their index. No row is lost: the result holds
// the union of both indexes and the union of both column sets, with null
// where a table had no reading. When both tables carry a column of the same
// name, a's non-null cells win and b fills the rest.
func OuterJoin(a, b *Table) *Table {
	if a == nil {
		a = New()
	}
	if b == nil {
		b = New()
	}

	index, fromA, fromB := mergeIndex(a.index, b.index)
	out := &Table{
		index: index,
		cells: make(map[string][]Value, len(a.columns)+len(b.columns)),
	}

	for _, name := range a.columns {
		col := make([]Value, len(index))
		src := a.cells[name]
		for i, p := range fromA {
			if p >= 0 {
				col[i] = src[p]
			}
		}
		out.cells[name] = col
		out.columns = append(out.columns, name)
	}
	for _, name := range b.columns {
		col, ok := out.cells[name]
		if !ok {
			col = make([]Value, len(index))
			out.cells[name] = col
			out.columns = append(out.columns, name)
		}
		src := b.cells[name]
		for i, p := range fromB {
			if p >= 0 && col[i].IsNull() {
				col[i] = src[p]
			}
		}
	}
	sort.Strings(out.columns)
	return out
}

// Concat stacks tables row-wise. Inputs are expected in time order; rows
// sharing an instant, such as the shared boundary of two adjacent windows,
// collapse into one row holding the first non-null reading per column.
func Concat(tables ...*Table) *Table {
	out := New()
	for _, t := range tables {
		out = OuterJoin(out, t)
	}
	return out
}

// mergeIndex merges two ascending unique indexes. fromA[i] and fromB[i]
// give the source row of merged row i, or -1.
func mergeIndex(a, b []time.Time) (merged []time.Time, fromA, fromB []int) {
	merged = make([]time.Time, 0, len(a)+len(b))
	fromA = make([]int, 0, len(a)+len(b))
	fromB = make([]int, 0, len(a)+len(b))

	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i].Before(b[j])):
			merged = append(merged, a[i])
			fromA = append(fromA, i)
			fromB = append(fromB, -1)
			i++
		case i == len(a) || b[j].Before(a[i]):
			merged = append(merged, b[j])
			fromA = append(fromA, -1)
			fromB = append(fromB, j)
			j++
		default:
			merged = append(merged, a[i])
			fromA = append(fromA, i)
			fromB = append(fromB, j)
			i++
			j++
		}
	}
	return merged, fromA, fromB
}
