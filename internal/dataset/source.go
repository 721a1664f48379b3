package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/craftbits/executive-portal/internal/table"
)

// Raw is an untyped table as read from a source: a header row and text cells.
type Raw struct {
	Header []string
	Rows   [][]string
	// Origin describes where the data came from, e.g. "file:data/gl.csv".
	Origin string
}

// Source reads raw datasets. Implementations return an error wrapping
// ErrSourceUnavailable when they hold nothing for the requested name.
type Source interface {
	Name() string
	Fetch(ctx context.Context, name string) (*Raw, error)
}

// FreshnessSource is a Source that can report a change token for a dataset.
type FreshnessSource interface {
	Source
	// Freshness returns the modification time in Unix seconds, or 0 when the
	// dataset is absent.
	Freshness(name string) float64
}

func unavailable(source, name, reason string) error {
	return fmt.Errorf("%s: %s: %s: %w", source, name, reason, ErrSourceUnavailable)
}

// readFailed classifies an error from a remote read. A cancelled or expired
// ctx is returned as such so the loader does not mistake it for a missing
// source; anything else makes the source unavailable.
func readFailed(ctx context.Context, source, name string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %s: %w", source, name, ctxErr)
	}
	return unavailable(source, name, err.Error())
}

// Table converts the raw rows into a table of string cells. Empty cells are
// null, header names are trimmed, and duplicate headers get ".1", ".2" suffixes.
func (r *Raw) Table() *table.Table {
	b := table.NewBuilder(uniqueHeaders(r.Header)...)
	for _, row := range r.Rows {
		vals := make([]table.Value, len(r.Header))
		for i := range vals {
			if i >= len(row) {
				break
			}
			if cell := strings.TrimSpace(row[i]); cell != "" {
				vals[i] = table.String(cell)
			}
		}
		b.Add(vals...)
	}
	return b.Build()
}

func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; taken[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		taken[name] = true
		out[i] = name
	}
	return out
}
