// Package importer turns uploaded spreadsheets into student name rows.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

// NameKey is the row key carrying the detected student name.
const NameKey = "name"

// NameKeywords mark a header as the student name column.
var NameKeywords = []string{"الاسم", "اسم الطالب", "اسم", "name", "student", "full name", "المتعلم"}

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptySheet        = errors.New("file contains no rows")
)

var zeroWidth = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "")

// Parse reads a .csv or .xlsx upload. Each returned row holds the raw columns
// keyed by header plus the detected name under NameKey.
func Parse(filename string, r io.Reader) ([]map[string]string, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(r)
	case ".xlsx":
		records, err = readXLSX(r)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, importError(err)
	}
	if len(records) == 0 {
		return nil, importError(ErrEmptySheet)
	}
	return mapRows(records), nil
}

func importError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrImport.Code, appErrors.ErrImport.Status, appErrors.ErrImport.Message)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close() //nolint:errcheck

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func mapRows(records [][]string) []map[string]string {
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(zeroWidth.Replace(h))
	}
	nameCol := NameColumn(headers)

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		row := make(map[string]string, len(headers)+1)
		for i, h := range headers {
			if h == "" || i >= len(record) {
				continue
			}
			row[h] = strings.TrimSpace(record[i])
		}
		name := ""
		if nameCol < len(record) {
			name = strings.TrimSpace(zeroWidth.Replace(record[nameCol]))
		}
		if slices.Contains(NameKeywords, Normalize(name)) {
			name = ""
		}
		row[NameKey] = name
		rows = append(rows, row)
	}
	return rows
}

// NameColumn returns the index of the name column: the first header equal to
// a keyword, else the first header containing one, else 0.
func NameColumn(headers []string) int {
	for i, h := range headers {
		if slices.Contains(NameKeywords, Normalize(h)) {
			return i
		}
	}
	for i, h := range headers {
		clean := Normalize(h)
		if clean == "" {
			continue
		}
		for _, kw := range NameKeywords {
			if strings.Contains(clean, kw) {
				return i
			}
		}
	}
	return 0
}

// Normalize trims, strips zero-width characters and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(zeroWidth.Replace(s)))
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
