package repository

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/craftbits/executive-portal/internal/database"
	"github.com/jackc/pgx/v5"
)

// TableData is a raw, text-valued snapshot of a database table.
type TableData struct {
	Table   string
	Columns []string
	Rows    [][]string
}

// DatasetRepository defines the interface for reading dataset tables from Postgres.
type DatasetRepository interface {
	// FetchTable reads every row of the named table, optionally schema-qualified.
	// Returns nil, nil if the table does not exist (not an error).
	// Returns error only for actual database failures.
	FetchTable(ctx context.Context, tableName string) (*TableData, error)
}

// datasetRepository is the concrete implementation of DatasetRepository.
type datasetRepository struct {
	db *database.Database
}

// NewDatasetRepository creates a new instance of DatasetRepository.
func NewDatasetRepository(db *database.Database) DatasetRepository {
	return &datasetRepository{
		db: db,
	}
}

// FetchTable checks the table exists with to_regclass, then selects all of
// its columns. Cells are rendered as text so that every source hands the
// loader the same shape of data.
func (r *datasetRepository) FetchTable(ctx context.Context, tableName string) (*TableData, error) {
	ident := pgx.Identifier(strings.Split(tableName, "."))

	var regclass *string
	if err := r.db.Pool.QueryRow(ctx, "SELECT to_regclass($1)::text", ident.Sanitize()).Scan(&regclass); err != nil {
		return nil, fmt.Errorf("failed to resolve table %q: %w", tableName, err)
	}
	if regclass == nil {
		return nil, nil
	}

	rows, err := r.db.Pool.Query(ctx, "SELECT * FROM "+ident.Sanitize())
	if err != nil {
		return nil, fmt.Errorf("failed to query table %q: %w", tableName, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	data := &TableData{
		Table:   tableName,
		Columns: make([]string, len(fields)),
		Rows:    [][]string{},
	}
	for i, f := range fields {
		data.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row of %q: %w", tableName, err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = FormatCell(v)
		}
		data.Rows = append(data.Rows, row)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows of %q: %w", tableName, err)
	}

	return data, nil
}

// FormatCell renders a decoded Postgres value as loader input text.
// NULL becomes the empty string and dates use YYYY-MM-DD.
func FormatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case driver.Valuer:
		// pgtype.Numeric and friends render through their text encoding
		inner, err := val.Value()
		if err != nil || inner == nil {
			return ""
		}
		return FormatCell(inner)
	default:
		return fmt.Sprint(val)
	}
}
