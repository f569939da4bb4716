package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one parsed worksheet: a header row plus keyed data rows.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}

// Row maps normalized header names to trimmed cell values. RowNumber
// is the 1-based position in the source file, header included, so row
// errors point at the line the user sees in their spreadsheet tool.
type Row struct {
	Number int
	Values map[string]string
}

// Get returns a cell by normalized header name.
func (r Row) Get(key string) string {
	return r.Values[key]
}

// ErrEmptyWorkbook indicates a file with no data rows at all.
var ErrEmptyWorkbook = errors.New("importer: workbook contains no data")

// ParseWorkbook reads an uploaded spreadsheet. Files starting with the
// xlsx zip signature are parsed with excelize, everything else falls
// back to a single-sheet CSV read.
func ParseWorkbook(reader io.Reader, filename string) ([]Sheet, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyWorkbook
	}

	if isXLSX(data, filename) {
		return parseXLSX(data)
	}
	return parseCSV(data, filename)
}

func isXLSX(data []byte, filename string) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return true
	}
	return len(data) >= 4 && bytes.HasPrefix(data, []byte{0x50, 0x4b, 0x03, 0x04})
}

func parseXLSX(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := []Sheet{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheet := buildSheet(name, rows)
		if len(sheet.Headers) > 0 {
			sheets = append(sheets, sheet)
		}
	}
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return sheets, nil
}

func parseCSV(data []byte, filename string) ([]Sheet, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	name := strings.TrimSuffix(filename, ".csv")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		name = "sheet1"
	}

	sheet := buildSheet(name, records)
	if len(sheet.Headers) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return []Sheet{sheet}, nil
}

func buildSheet(name string, raw [][]string) Sheet {
	sheet := Sheet{Name: name}
	if len(raw) == 0 {
		return sheet
	}

	for _, cell := range raw[0] {
		sheet.Headers = append(sheet.Headers, strings.TrimSpace(cell))
	}

	keys := make([]string, len(sheet.Headers))
	for i, header := range sheet.Headers {
		keys[i] = NormalizeKey(header)
	}

	for i, record := range raw[1:] {
		if isBlank(record) {
			continue
		}
		row := Row{Number: i + 2, Values: map[string]string{}}
		for col, key := range keys {
			if key == "" {
				continue
			}
			if col < len(record) {
				row.Values[key] = strings.TrimSpace(record[col])
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
