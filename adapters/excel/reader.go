package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cropadvisor/internal"

	"github.com/xuri/excelize/v2"
)

// File types understood by the reader
const (
	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
)

// DataReader reads tabular rosters and observation sheets from Excel or CSV
type DataReader struct {
	fileType string
	maxRows  int
	logger   *internal.Logger
}

// NewDataReader creates a reader for the given file type. maxRows <= 0
// means no limit.
func NewDataReader(fileType string, maxRows int) (*DataReader, error) {
	fileType = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fileType)), ".")
	switch fileType {
	case FileTypeCSV, FileTypeXLSX:
	default:
		return nil, fmt.Errorf("unsupported file type: %q", fileType)
	}
	return &DataReader{fileType: fileType, maxRows: maxRows, logger: internal.DefaultLogger}, nil
}

// FileTypeOf returns the reader type for a file name by extension
func FileTypeOf(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return FileTypeCSV
	}
	return FileTypeXLSX
}

// ReadFile opens path and reads it with a reader chosen by extension
func ReadFile(path string, maxRows int) (*Table, error) {
	r, err := NewDataReader(FileTypeOf(path), maxRows)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s file not found: %w", strings.ToUpper(r.fileType), err)
	}
	defer f.Close()
	return r.Read(f)
}

// Read parses the whole input into a Table
func (r *DataReader) Read(in io.Reader) (*Table, error) {
	start := time.Now()

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case FileTypeCSV:
		rows, err = r.readCSV(in)
	case FileTypeXLSX:
		rows, err = r.readExcel(in)
	}
	if err != nil {
		return nil, err
	}

	table, err := r.processRows(rows)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d columns, %d rows)",
		strings.ToUpper(r.fileType), float64(time.Since(start).Nanoseconds())/1e6, len(table.Headers), len(table.Rows))
	return table, nil
}

// readExcel reads the first sheet of the workbook
func (r *DataReader) readExcel(in io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	return rows, nil
}

func (r *DataReader) readCSV(in io.Reader) ([][]string, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into a Table, skipping blank lines
func (r *DataReader) processRows(rows [][]string) (*Table, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have at least a header row and one data row", strings.ToUpper(r.fileType))
	}

	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	table := &Table{Headers: headers}
	for i := 1; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}
		if r.maxRows > 0 && len(table.Rows) >= r.maxRows {
			return nil, fmt.Errorf("file has more than %d data rows", r.maxRows)
		}

		values := make(map[string]string, len(headers))
		for j, cell := range rows[i] {
			if j < len(headers) && headers[j] != "" {
				values[headers[j]] = strings.TrimSpace(cell)
			}
		}
		table.Rows = append(table.Rows, Row{Line: i + 1, Values: values})
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%s file has no data rows", strings.ToUpper(r.fileType))
	}
	return table, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
