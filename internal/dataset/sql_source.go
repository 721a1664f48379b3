package dataset

import (
	"context"
	"fmt"

	"github.com/craftbits/executive-portal/internal/repository"
)

// SQLSource reads datasets from Postgres tables. Only datasets listed in
// the table mapping are served.
type SQLSource struct {
	repo   repository.DatasetRepository
	tables map[string]string
}

// NewSQLSource creates a SQLSource over repo.
func NewSQLSource(repo repository.DatasetRepository, tables map[string]string) *SQLSource {
	return &SQLSource{repo: repo, tables: tables}
}

// Name identifies the source in provenance and logs.
func (s *SQLSource) Name() string { return "postgres" }

// Fetch reads the mapped table.
func (s *SQLSource) Fetch(ctx context.Context, name string) (*Raw, error) {
	tableName, ok := s.tables[name]
	if !ok || tableName == "" {
		return nil, unavailable(s.Name(), name, "no table configured")
	}

	data, err := s.repo.FetchTable(ctx, tableName)
	if err != nil {
		return nil, readFailed(ctx, s.Name(), name, err)
	}
	if data == nil {
		return nil, unavailable(s.Name(), name, fmt.Sprintf("table %s does not exist", tableName))
	}

	return &Raw{
		Header: data.Columns,
		Rows:   data.Rows,
		Origin: "postgres:" + tableName,
	}, nil
}
