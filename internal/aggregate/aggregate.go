// Package aggregate filters tables to period windows and reduces them by
// grouping keys.
package aggregate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
)

// Window is an inclusive range of months. A zero Start is unbounded below
// and a zero End is unbounded above.
type Window struct {
	Start models.Month
	End   models.Month
}

// Through returns the year-to-date style window ending at end.
func Through(end models.Month) Window { return Window{End: end} }

// Contains reports whether m lies within the window.
func (w Window) Contains(m models.Month) bool {
	if !w.Start.IsZero() && m.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && w.End.Before(m) {
		return false
	}
	return true
}

// String renders the window as "start..end" with open ends left blank.
func (w Window) String() string {
	var b strings.Builder
	if !w.Start.IsZero() {
		b.WriteString(w.Start.String())
	}
	b.WriteString("..")
	if !w.End.IsZero() {
		b.WriteString(w.End.String())
	}
	return b.String()
}

// FilterPeriods keeps the rows whose date in column falls in a month inside
// w. Rows with a null or non-date cell are dropped.
func FilterPeriods(t *table.Table, column string, w Window) *table.Table {
	return t.Filter(func(r table.Row) bool {
		d, ok := r.Get(column).Time()
		return ok && w.Contains(models.MonthOf(d))
	})
}

// YearToDate keeps the rows up to and including the cutoff month.
func YearToDate(t *table.Table, column string, cutoff models.Month) *table.Table {
	return FilterPeriods(t, column, Through(cutoff))
}

// Periods returns the distinct months of a date column, ascending.
func Periods(t *table.Table, column string) []models.Month {
	seen := make(map[models.Month]bool)
	var out []models.Month
	for _, v := range t.Column(column) {
		d, ok := v.Time()
		if !ok {
			continue
		}
		m := models.MonthOf(d)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b models.Month) int { return a.Time().Compare(b.Time()) })
	return out
}

// Op is a reduction operation.
type Op uint8

const (
	OpSum Op = iota
	OpMean
)

func (o Op) String() string {
	if o == OpMean {
		return "mean"
	}
	return "sum"
}

// Reducer reduces one column of each group into an output column.
type Reducer struct {
	Column string
	As     string
	Op     Op
}

// Sum totals the numeric cells of column. Nulls are skipped and a group
// without numbers sums to zero.
func Sum(column string) Reducer { return Reducer{Column: column, As: column, Op: OpSum} }

// Mean averages the numeric cells of column. A group without numbers
// yields null.
func Mean(column string) Reducer { return Reducer{Column: column, As: column, Op: OpMean} }

// Named returns the reducer writing to a differently named output column.
func (r Reducer) Named(as string) Reducer {
	r.As = as
	return r
}

type accumulator struct {
	sum   decimal.Decimal
	count int64
}

func (a *accumulator) add(v table.Value) {
	if d, ok := v.Decimal(); ok {
		a.sum = a.sum.Add(d)
		a.count++
	}
}

func (a accumulator) result(op Op) table.Value {
	if op == OpMean {
		if a.count == 0 {
			return table.Null()
		}
		return table.Number(a.sum.Div(decimal.NewFromInt(a.count)))
	}
	return table.Number(a.sum)
}

type group struct {
	keys []table.Value
	accs []accumulator
}

// Aggregate returns one row per distinct combination of keys, sorted by the
// keys, holding the key cells followed by one column per reducer. With no
// keys the whole table is a single group, so an empty input still yields
// one row.
func Aggregate(t *table.Table, keys []string, reducers ...Reducer) (*table.Table, error) {
	var need []string
	need = append(need, keys...)
	for _, r := range reducers {
		need = append(need, r.Column)
	}
	if missing := t.MissingColumns(need...); len(missing) > 0 {
		return nil, fmt.Errorf("aggregate: unknown columns %v", missing)
	}

	columns := slices.Clone(keys)
	for _, r := range reducers {
		columns = append(columns, r.As)
	}

	groups := make(map[string]*group)
	var order []*group
	if len(keys) == 0 {
		g := &group{accs: make([]accumulator, len(reducers))}
		groups[""] = g
		order = append(order, g)
	}

	for _, row := range t.Rows() {
		kv := make([]table.Value, len(keys))
		var id strings.Builder
		for i, k := range keys {
			kv[i] = row.Get(k)
			id.WriteString(kv[i].Key())
			id.WriteByte(0)
		}
		g, ok := groups[id.String()]
		if !ok {
			g = &group{keys: kv, accs: make([]accumulator, len(reducers))}
			groups[id.String()] = g
			order = append(order, g)
		}
		for i, r := range reducers {
			g.accs[i].add(row.Get(r.Column))
		}
	}

	slices.SortStableFunc(order, func(a, b *group) int {
		for i := range a.keys {
			if c := table.Compare(a.keys[i], b.keys[i]); c != 0 {
				return c
			}
		}
		return 0
	})

	b := table.NewBuilder(columns...)
	for _, g := range order {
		vals := slices.Clone(g.keys)
		for i, r := range reducers {
			vals = append(vals, g.accs[i].result(r.Op))
		}
		b.Add(vals...)
	}
	return b.Build(), nil
}

// Pivot sums valueCol for each (rowKeys, pivotCol) pair and spreads the
// distinct pivotCol cells into columns named by their text form, ascending.
// Absent combinations are filled with zero. Rows with a null pivot cell are
// skipped.
func Pivot(t *table.Table, rowKeys []string, pivotCol, valueCol string) (*table.Table, error) {
	keys := append(slices.Clone(rowKeys), pivotCol)
	long, err := Aggregate(t.Filter(func(r table.Row) bool {
		return !r.Get(pivotCol).IsNull()
	}), keys, Sum(valueCol))
	if err != nil {
		return nil, err
	}

	var pivots []string
	for _, v := range long.Distinct(pivotCol) {
		pivots = append(pivots, v.Str())
	}
	columns := slices.Clone(rowKeys)
	for _, p := range pivots {
		if slices.Contains(columns, p) {
			return nil, fmt.Errorf("pivot: value %q collides with a row key", p)
		}
		columns = append(columns, p)
	}

	type wideRow struct {
		keys  []table.Value
		cells map[string]table.Value
	}
	var rows []*wideRow
	byID := make(map[string]*wideRow)
	for _, row := range long.Rows() {
		kv := make([]table.Value, len(rowKeys))
		var id strings.Builder
		for i, k := range rowKeys {
			kv[i] = row.Get(k)
			id.WriteString(kv[i].Key())
			id.WriteByte(0)
		}
		w, ok := byID[id.String()]
		if !ok {
			w = &wideRow{keys: kv, cells: make(map[string]table.Value)}
			byID[id.String()] = w
			rows = append(rows, w)
		}
		w.cells[row.Str(pivotCol)] = row.Get(valueCol)
	}

	b := table.NewBuilder(columns...)
	for _, w := range rows {
		vals := slices.Clone(w.keys)
		for _, p := range pivots {
			v, ok := w.cells[p]
			if !ok {
				v = table.Number(decimal.Zero)
			}
			vals = append(vals, v)
		}
		b.Add(vals...)
	}
	return b.Build(), nil
}
