package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FileSource reads datasets from delimited text or Excel workbooks in a
// directory. A mapping entry may name a worksheet as "book.xlsx#Sheet";
// otherwise the first worksheet is used.
type FileSource struct {
	dir   string
	files map[string]string
}

// NewFileSource creates a FileSource. Datasets without a mapping entry are
// looked up as <name>.csv inside dir.
func NewFileSource(dir string, files map[string]string) *FileSource {
	return &FileSource{dir: dir, files: files}
}

// Name identifies the source in provenance and logs.
func (s *FileSource) Name() string { return "file" }

// Path resolves the file and optional worksheet for a dataset.
func (s *FileSource) Path(name string) (path, sheet string) {
	file, ok := s.files[name]
	if !ok || file == "" {
		file = name + ".csv"
	}
	if i := strings.LastIndex(file, "#"); i >= 0 {
		file, sheet = file[:i], file[i+1:]
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(s.dir, file)
	}
	return file, sheet
}

// Freshness returns the file's modification time in Unix seconds, or 0 when
// the file does not exist.
func (s *FileSource) Freshness(name string) float64 {
	path, _ := s.Path(name)
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.ModTime().UnixNano()) / 1e9
}

// Fetch reads the dataset file.
func (s *FileSource) Fetch(ctx context.Context, name string) (*Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, sheet := s.Path(name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, unavailable(s.Name(), name, "no file at "+path)
		}
		return nil, unavailable(s.Name(), name, err.Error())
	}

	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(path, sheet)
	case ".csv", ".txt":
		records, err = readDelimited(path, ',')
	case ".tsv":
		records, err = readDelimited(path, '\t')
	default:
		return nil, unavailable(s.Name(), name, "unsupported file type "+filepath.Ext(path))
	}
	if err != nil {
		return nil, unavailable(s.Name(), name, err.Error())
	}

	raw := &Raw{Origin: "file:" + path}
	if sheet != "" {
		raw.Origin += "#" + sheet
	}
	if len(records) > 0 {
		raw.Header = records[0]
		raw.Rows = records[1:]
	}
	return raw, nil
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no worksheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}
