// Package table provides the immutable, column-named tabular value that every
// dataset and derived statement is expressed in.
//
// A Table has no mutating methods. Transforms return new tables that may share
// row storage with their input, which is safe because rows are never written
// after Build.
package table

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"sort"
)

// Table is an ordered set of rows over named columns.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// Builder accumulates rows for a new Table.
type Builder struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// NewBuilder starts a table with the given columns.
// It panics on duplicate column names.
func NewBuilder(columns ...string) *Builder {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			panic(fmt.Sprintf("table: duplicate column %q", c))
		}
		index[c] = i
	}
	return &Builder{columns: slices.Clone(columns), index: index}
}

// Add appends a row. Missing trailing cells are null and extra cells are dropped.
func (b *Builder) Add(vals ...Value) *Builder {
	row := make([]Value, len(b.columns))
	copy(row, vals)
	b.rows = append(b.rows, row)
	return b
}

// AddMap appends a row from a column->value map; absent columns are null.
func (b *Builder) AddMap(vals map[string]Value) *Builder {
	row := make([]Value, len(b.columns))
	for c, v := range vals {
		if i, ok := b.index[c]; ok {
			row[i] = v
		}
	}
	b.rows = append(b.rows, row)
	return b
}

// Len returns the number of rows added so far.
func (b *Builder) Len() int { return len(b.rows) }

// Build returns the table. The builder must not be used afterwards.
func (b *Builder) Build() *Table {
	t := &Table{columns: b.columns, index: b.index, rows: b.rows}
	b.columns, b.index, b.rows = nil, nil, nil
	return t
}

// Empty returns a table with the given columns and no rows.
func Empty(columns ...string) *Table { return NewBuilder(columns...).Build() }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.columns)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[name]
	return ok
}

// MissingColumns returns the subset of names the table lacks, in input order.
func (t *Table) MissingColumns(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns the i-th row.
func (t *Table) Row(i int) Row { return Row{t: t, vals: t.rows[i]} }

// Rows iterates over the rows in order.
func (t *Table) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i := 0; i < t.Len(); i++ {
			if !yield(i, t.Row(i)) {
				return
			}
		}
	}
}

// Column returns a copy of the cells of one column. Unknown columns yield nil.
func (t *Table) Column(name string) []Value {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{columns: t.columns, index: t.index}
	for _, row := range t.rows {
		if keep(Row{t: t, vals: row}) {
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// Select projects the table onto the named columns.
func (t *Table) Select(columns ...string) (*Table, error) {
	if missing := t.MissingColumns(columns...); len(missing) > 0 {
		return nil, fmt.Errorf("select: unknown columns %v", missing)
	}
	b := NewBuilder(columns...)
	for _, row := range t.rows {
		vals := make([]Value, len(columns))
		for i, c := range columns {
			vals[i] = row[t.index[c]]
		}
		b.Add(vals...)
	}
	return b.Build(), nil
}

// SortBy returns the rows stably sorted by the named columns, ascending.
// Unknown columns are ignored.
func (t *Table) SortBy(columns ...string) *Table {
	idx := make([]int, 0, len(columns))
	for _, c := range columns {
		if i, ok := t.index[c]; ok {
			idx = append(idx, i)
		}
	}
	rows := slices.Clone(t.rows)
	sort.SliceStable(rows, func(a, b int) bool {
		for _, i := range idx {
			if c := Compare(rows[a][i], rows[b][i]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return &Table{columns: t.columns, index: t.index, rows: rows}
}

// WithColumn returns a table with the named column computed by fn.
// An existing column of that name is replaced in place; otherwise it is appended.
func (t *Table) WithColumn(name string, fn func(Row) Value) *Table {
	columns := t.columns
	index := t.index
	pos, exists := t.index[name]
	if !exists {
		columns = append(slices.Clone(t.columns), name)
		index = make(map[string]int, len(columns))
		for i, c := range columns {
			index[c] = i
		}
		pos = len(columns) - 1
	}
	rows := make([][]Value, len(t.rows))
	for r, row := range t.rows {
		nr := make([]Value, len(columns))
		copy(nr, row)
		nr[pos] = fn(Row{t: t, vals: row})
		rows[r] = nr
	}
	return &Table{columns: columns, index: index, rows: rows}
}

// Distinct returns the distinct cells of a column in ascending order.
func (t *Table) Distinct(name string) []Value {
	seen := make(map[string]bool)
	var out []Value
	for _, v := range t.Column(name) {
		k := v.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	slices.SortFunc(out, Compare)
	return out
}

// Tail returns the last n rows (all rows when n >= Len).
func (t *Table) Tail(n int) *Table {
	if n < 0 {
		n = 0
	}
	start := max(len(t.rows)-n, 0)
	return &Table{columns: t.columns, index: t.index, rows: t.rows[start:]}
}

// Head returns the first n rows (all rows when n >= Len).
func (t *Table) Head(n int) *Table {
	n = min(max(n, 0), len(t.rows))
	return &Table{columns: t.columns, index: t.index, rows: t.rows[:n]}
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [[...], ...]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = [][]Value{}
	}
	return json.Marshal(struct {
		Columns []string  `json:"columns"`
		Rows    [][]Value `json:"rows"`
	}{Columns: t.Columns(), Rows: rows})
}

// Row is a read-only view of one table row.
type Row struct {
	t    *Table
	vals []Value
}

// Get returns the named cell, or null when the column does not exist.
func (r Row) Get(column string) Value {
	i, ok := r.t.index[column]
	if !ok {
		return Null()
	}
	return r.vals[i]
}

// Str is shorthand for Get(column).Str().
func (r Row) Str(column string) string { return r.Get(column).Str() }

// Values returns a copy of the row cells in column order.
func (r Row) Values() []Value { return slices.Clone(r.vals) }
