// Package dataset resolves logical dataset names to validated tables.
//
// A Loader tries its sources in order, applies the dataset's schema guard and
// lenient type coercion, and substitutes the synthetic sample table whenever no
// source can supply structurally valid data. Every Result says which of the two
// happened.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craftbits/executive-portal/internal/logger"
	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/table"
)

// Provenance values.
const (
	ProvenanceReal      = "real"
	ProvenanceSynthetic = "synthetic"
)

// Result is a loaded dataset plus where it came from.
type Result struct {
	Name       string
	Table      *table.Table
	Provenance string
	Origin     string
	Warnings   []string
	LoadedAt   time.Time
}

// Synthetic reports whether the table is fallback data.
func (r *Result) Synthetic() bool { return r.Provenance == ProvenanceSynthetic }

// Info returns the provenance metadata attached to reports.
func (r *Result) Info() models.SourceInfo {
	return models.SourceInfo{
		Dataset:    r.Name,
		Provenance: r.Provenance,
		Origin:     r.Origin,
		Warnings:   r.Warnings,
		LoadedAt:   r.LoadedAt,
	}
}

// Loader loads datasets from an ordered list of sources.
type Loader struct {
	registry *Registry
	sources  []Source
	log      *logger.Logger
	now      func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderClock overrides the clock used for Result.LoadedAt.
func WithLoaderClock(now func() time.Time) LoaderOption {
	return func(l *Loader) { l.now = now }
}

// NewLoader creates a loader. Sources are tried in the given order; the
// first one that returns data wins.
func NewLoader(registry *Registry, log *logger.Logger, sources []Source, opts ...LoaderOption) *Loader {
	l := &Loader{
		registry: registry,
		sources:  sources,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Registry returns the loader's descriptor registry.
func (l *Loader) Registry() *Registry { return l.registry }

// Freshness returns the dataset's change token: the newest modification
// time reported by any source, or 0 when no source knows the dataset.
func (l *Loader) Freshness(name string) float64 {
	var token float64
	for _, src := range l.sources {
		if fs, ok := src.(FreshnessSource); ok {
			token = max(token, fs.Freshness(name))
		}
	}
	return token
}

// Load resolves name to a table.
//
// Registered datasets never fail because of their sources: an unavailable
// source or a table missing required columns yields the synthetic table
// instead. Names that are not registered load as-is from a source, and fail
// with *UnknownDatasetError when no source has them.
func (l *Loader) Load(ctx context.Context, name string) (*Result, error) {
	log := l.log.WithDataset(name)
	desc, registered := l.registry.Lookup(name)

	raw, src, err := l.fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	if raw == nil {
		if !registered {
			return nil, &UnknownDatasetError{Name: name}
		}
		if desc.Fallback == nil {
			return nil, fmt.Errorf("failed to load dataset %s: %w", name, ErrSourceUnavailable)
		}
		log.Info("No source available, using synthetic data", nil)
		return l.synthetic(desc, "no source available; using synthetic data"), nil
	}

	t := raw.Table()
	if !registered {
		log.Info("Loaded unregistered dataset without schema guard", map[string]interface{}{
			"origin": raw.Origin,
			"rows":   t.Len(),
		})
		return l.result(name, t, ProvenanceReal, raw.Origin, nil), nil
	}

	if missing := t.MissingColumns(desc.Required...); len(missing) > 0 {
		if desc.Fallback == nil {
			return nil, &SchemaError{Name: name, Missing: missing}
		}
		warning := fmt.Sprintf("%s is missing required columns [%s]; using synthetic data",
			raw.Origin, strings.Join(missing, ", "))
		log.Warn("Schema violation, using synthetic data", map[string]interface{}{
			"source":  src,
			"origin":  raw.Origin,
			"missing": missing,
		})
		return l.synthetic(desc, warning), nil
	}

	t = coerce(t, desc)
	log.Debug("Dataset loaded", map[string]interface{}{
		"source": src,
		"origin": raw.Origin,
		"rows":   t.Len(),
	})
	return l.result(name, t, ProvenanceReal, raw.Origin, nil), nil
}

// fetch returns the first source's data, or nil when every source is
// unavailable. Errors other than ErrSourceUnavailable abort the load, and so
// does a done ctx: a cancelled caller never turns into synthetic data.
func (l *Loader) fetch(ctx context.Context, name string) (*Raw, string, error) {
	for _, src := range l.sources {
		raw, err := src.Fetch(ctx, name)
		if err == nil {
			return raw, src.Name(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", fmt.Errorf("failed to load dataset %s from %s: %w", name, src.Name(), ctxErr)
		}
		if !errors.Is(err, ErrSourceUnavailable) {
			return nil, "", fmt.Errorf("failed to load dataset %s from %s: %w", name, src.Name(), err)
		}
		l.log.Debug("Source unavailable", map[string]interface{}{
			"dataset": name,
			"source":  src.Name(),
			"reason":  err.Error(),
		})
	}
	return nil, "", nil
}

func (l *Loader) synthetic(desc Descriptor, warning string) *Result {
	t := coerce(desc.Fallback(), desc)
	return l.result(desc.Name, t, ProvenanceSynthetic, "synthetic:"+desc.Name, []string{warning})
}

func (l *Loader) result(name string, t *table.Table, provenance, origin string, warnings []string) *Result {
	return &Result{
		Name:       name,
		Table:      t,
		Provenance: provenance,
		Origin:     origin,
		Warnings:   warnings,
		LoadedAt:   l.now(),
	}
}
