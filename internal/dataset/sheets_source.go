package dataset

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/craftbits/executive-portal/internal/config"
	"github.com/craftbits/executive-portal/internal/repository"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// placeholderPrefix marks sheet ids left at their template value.
const placeholderPrefix = "YOUR_"

// SheetsSource reads datasets from Google Sheets worksheets. It is best
// effort: missing credentials, unconfigured sheets and failed fetches all
// report ErrSourceUnavailable.
type SheetsSource struct {
	refs map[string]config.SheetRef
	opts []option.ClientOption

	once   sync.Once
	svc    *sheets.Service
	svcErr error
}

// SheetsClientOptions returns the client options for the configured
// credentials, or nil when none are configured.
func SheetsClientOptions(cfg config.SheetsConfig) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		return append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil
	}
}

// NewSheetsSource creates a SheetsSource. With no client options the source
// is credential-less and never fetches.
func NewSheetsSource(refs map[string]config.SheetRef, opts ...option.ClientOption) *SheetsSource {
	return &SheetsSource{refs: refs, opts: opts}
}

// Name identifies the source in provenance and logs.
func (s *SheetsSource) Name() string { return "sheets" }

// Configured reports whether the dataset has a usable sheet reference and
// the source has credentials.
func (s *SheetsSource) Configured(name string) bool {
	ref, ok := s.refs[name]
	return ok && len(s.opts) > 0 && ref.SheetID != "" && !strings.HasPrefix(ref.SheetID, placeholderPrefix)
}

func (s *SheetsSource) service() (*sheets.Service, error) {
	s.once.Do(func() {
		// request contexts are applied per call in Fetch
		s.svc, s.svcErr = sheets.NewService(context.Background(), s.opts...)
	})
	return s.svc, s.svcErr
}

// Fetch reads the configured worksheet. Fully empty rows are dropped.
func (s *SheetsSource) Fetch(ctx context.Context, name string) (*Raw, error) {
	if len(s.opts) == 0 {
		return nil, unavailable(s.Name(), name, "no credentials configured")
	}
	if !s.Configured(name) {
		return nil, unavailable(s.Name(), name, "no sheet configured")
	}
	ref := s.refs[name]

	svc, err := s.service()
	if err != nil {
		return nil, unavailable(s.Name(), name, err.Error())
	}

	worksheet := ref.Worksheet
	if worksheet == "" {
		worksheet = "Sheet1"
	}
	a1 := "'" + strings.ReplaceAll(worksheet, "'", "''") + "'"

	resp, err := svc.Spreadsheets.Values.Get(ref.SheetID, a1).Context(ctx).Do()
	if err != nil {
		return nil, readFailed(ctx, s.Name(), name, fmt.Errorf("fetch failed: %w", err))
	}

	raw := &Raw{Origin: fmt.Sprintf("sheets:%s/%s", ref.SheetID, worksheet)}
	for _, values := range resp.Values {
		row := make([]string, len(values))
		empty := true
		for i, v := range values {
			row[i] = strings.TrimSpace(repository.FormatCell(v))
			if row[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		if raw.Header == nil {
			raw.Header = row
			continue
		}
		raw.Rows = append(raw.Rows, row)
	}
	if raw.Header == nil {
		return nil, unavailable(s.Name(), name, "worksheet is empty")
	}
	return raw, nil
}
