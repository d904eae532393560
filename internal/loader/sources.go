package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

// format is the on-disk encoding of a file source.
type format int

const (
	formatUnknown format = iota
	formatXLSX
	formatCSV
)

func formatOf(uri string) format {
	switch strings.ToLower(path.Ext(uri)) {
	case ".xlsx", ".xlsm":
		return formatXLSX
	case ".csv", ".txt":
		return formatCSV
	}
	return formatUnknown
}

// decode reads header-first records from file bytes.
func decode(uri string, data []byte) ([][]string, error) {
	switch formatOf(uri) {
	case formatXLSX:
		return readXLSX(data)
	case formatCSV:
		return readCSV(bytes.NewReader(data))
	}
	return nil, fmt.Errorf("unsupported file type %q (want .xlsx or .csv)", path.Ext(uri))
}

// readXLSX returns the rows of the workbook's first sheet. Cells are read
// raw so dates arrive as serial numbers regardless of cell style.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// readCSV reads comma-separated records. Rows may have differing lengths.
func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}
