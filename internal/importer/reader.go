package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"pim-service/internal/models"
)

// csvSheetName is the pseudo-worksheet a CSV upload is presented as
const csvSheetName = "Sheet1"

// Workbook reads one uploaded spreadsheet. Every call re-opens the backing
// file and reads a single worksheet, so a multi-sheet import never holds the
// whole workbook in memory.
type Workbook struct {
	path   string
	format models.ImportFormat
}

// OpenWorkbook wraps a spooled upload. The file itself is opened lazily.
func OpenWorkbook(path string, format models.ImportFormat) *Workbook {
	return &Workbook{path: path, format: format}
}

// DetectFormat maps a filename to its import format
func DetectFormat(filename string) (models.ImportFormat, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		return models.ImportFormatCSV, nil
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		return models.ImportFormatXLSX, nil
	case strings.HasSuffix(strings.ToLower(filename), ".xls"):
		return models.ImportFormatXLS, nil
	}
	return "", fmt.Errorf("unsupported file type: %s", filename)
}

// Worksheets enumerates the worksheet names in upload order
func (w *Workbook) Worksheets() ([]string, error) {
	if w.format == models.ImportFormatCSV {
		return []string{csvSheetName}, nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// Headers reads the first row of a worksheet
func (w *Workbook) Headers(sheet string) ([]string, error) {
	var headers []string
	err := w.readRows(sheet, func(rowNum int, cells []string) error {
		if rowNum == 1 {
			headers = cells
			return errStopReading
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if headers == nil {
		return nil, fmt.Errorf("worksheet %q has no header row", sheet)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	return headers, nil
}

// ReadDataRows streams data rows (the header row is skipped) to fn with
// 1-based spreadsheet row numbers. limit <= 0 streams every row.
func (w *Workbook) ReadDataRows(sheet string, limit int, fn func(rowNum int, cells []string) error) error {
	read := 0
	return w.readRows(sheet, func(rowNum int, cells []string) error {
		if rowNum == 1 {
			return nil
		}
		if limit > 0 && read >= limit {
			return errStopReading
		}
		read++
		return fn(rowNum, cells)
	})
}

// errStopReading aborts a row scan early without reporting failure
var errStopReading = fmt.Errorf("stop reading")

func (w *Workbook) readRows(sheet string, fn func(rowNum int, cells []string) error) error {
	var err error
	if w.format == models.ImportFormatCSV {
		err = w.readCSV(fn)
	} else {
		err = w.readExcel(sheet, fn)
	}
	if err == errStopReading {
		return nil
	}
	return err
}

func (w *Workbook) readCSV(fn func(rowNum int, cells []string) error) error {
	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows
	reader.LazyQuotes = true

	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading line %d: %w", rowNum+1, err)
		}
		rowNum++
		if rowNum == 1 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}
		if err := fn(rowNum, record); err != nil {
			return err
		}
	}
}

func (w *Workbook) readExcel(sheet string, fn func(rowNum int, cells []string) error) error {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read worksheet %q: %w", sheet, err)
	}
	defer rows.Close()

	rowNum := 0
	for rows.Next() {
		rowNum++
		cells, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("error reading row %d: %w", rowNum, err)
		}
		if err := fn(rowNum, cells); err != nil {
			return err
		}
	}
	return rows.Error()
}
