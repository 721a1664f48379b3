// Package join enriches transaction tables with fields from a dimension table.
package join

import (
	"errors"
	"fmt"
	"slices"

	"github.com/craftbits/executive-portal/internal/table"
)

// ErrMissingKey is returned when either side lacks the join key column.
var ErrMissingKey = errors.New("join key column missing")

// CollisionSuffix is appended to dimension fields whose name already exists
// in the transaction table.
const CollisionSuffix = "_dim"

// Enrich left-joins transactions to dimension on key and appends the named
// dimension fields to every transaction row. With no fields, every dimension
// column other than key is appended.
//
// Transaction rows are never dropped or duplicated: a row without a match
// gets null fields, and when the dimension repeats a key the first row wins.
// Null keys never match.
func Enrich(transactions, dimension *table.Table, key string, fields ...string) (*table.Table, error) {
	if !transactions.HasColumn(key) {
		return nil, fmt.Errorf("transactions: %w: %q", ErrMissingKey, key)
	}
	if !dimension.HasColumn(key) {
		return nil, fmt.Errorf("dimension: %w: %q", ErrMissingKey, key)
	}

	if len(fields) == 0 {
		for _, c := range dimension.Columns() {
			if c != key {
				fields = append(fields, c)
			}
		}
	}
	if missing := dimension.MissingColumns(fields...); len(missing) > 0 {
		return nil, fmt.Errorf("dimension: unknown fields %v", missing)
	}

	lookup := make(map[string]table.Row, dimension.Len())
	for _, row := range dimension.Rows() {
		k := row.Get(key)
		if k.IsNull() {
			continue
		}
		if _, seen := lookup[k.Key()]; !seen {
			lookup[k.Key()] = row
		}
	}

	columns := transactions.Columns()
	names := make([]string, len(fields))
	for i, f := range fields {
		name := f
		for slices.Contains(columns, name) {
			name += CollisionSuffix
		}
		names[i] = name
		columns = append(columns, name)
	}

	b := table.NewBuilder(columns...)
	for _, row := range transactions.Rows() {
		vals := row.Values()
		match, ok := lookup[row.Get(key).Key()]
		for _, f := range fields {
			if ok && !row.Get(key).IsNull() {
				vals = append(vals, match.Get(f))
			} else {
				vals = append(vals, table.Null())
			}
		}
		b.Add(vals...)
	}
	return b.Build(), nil
}

// Unmatched returns the distinct keys of transactions that have no dimension
// row, in ascending order.
func Unmatched(transactions, dimension *table.Table, key string) []table.Value {
	known := make(map[string]bool, dimension.Len())
	for _, v := range dimension.Column(key) {
		known[v.Key()] = true
	}
	var out []table.Value
	for _, v := range transactions.Distinct(key) {
		if !v.IsNull() && !known[v.Key()] {
			out = append(out, v)
		}
	}
	return out
}
