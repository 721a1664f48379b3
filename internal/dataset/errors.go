package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownDataset is returned for names that are neither registered nor mapped to a source.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrSourceUnavailable means a source has no data for a dataset: not
	// configured, missing, unreadable, or a failed remote fetch.
	ErrSourceUnavailable = errors.New("dataset source unavailable")

	// ErrSchemaViolation means a loaded table lacks required columns.
	ErrSchemaViolation = errors.New("dataset schema violation")
)

// UnknownDatasetError names the dataset that could not be resolved.
type UnknownDatasetError struct {
	Name string
}

func (e *UnknownDatasetError) Error() string {
	return fmt.Sprintf("unknown dataset name: %s", e.Name)
}

// Is makes errors.Is(err, ErrUnknownDataset) hold.
func (e *UnknownDatasetError) Is(target error) bool {
	return target == ErrUnknownDataset
}

// SchemaError lists the required columns missing from a dataset that has no
// synthetic fallback.
type SchemaError struct {
	Name    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset %s is missing required columns: %s", e.Name, strings.Join(e.Missing, ", "))
}

// Is makes errors.Is(err, ErrSchemaViolation) hold.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaViolation
}
