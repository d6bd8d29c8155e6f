package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoHeader          = errors.New("file has no header row")
)

// DetectSeparator picks the CSV delimiter from a header line by counting
// candidates. Ties favour tab, then semicolon.
func DetectSeparator(line string) rune {
	tabs := strings.Count(line, "\t")
	commas := strings.Count(line, ",")
	semicolons := strings.Count(line, ";")

	if tabs >= commas && tabs >= semicolons && tabs > 0 {
		return '\t'
	}
	if semicolons >= commas && semicolons > 0 {
		return ';'
	}
	return ','
}

// ReadCSV parses a delimited export. The delimiter is sniffed from the first
// line and the first record becomes the header.
func ReadCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	firstLine, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectSeparator(firstLine)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return fromRecords(records)
}

// ReadXLSX parses the first sheet of a workbook.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return fromRecords(rows)
}

// maxXLSRows bounds how many rows are read from a legacy workbook.
const maxXLSRows = 1 << 20

// ReadXLS parses a legacy binary workbook. Older MetaTrader and CRM exports
// still ship as .xls.
func ReadXLS(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read xls: %w", err)
	}
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls workbook: %w", err)
	}
	return fromRecords(wb.ReadAllCells(maxXLSRows))
}

// Read dispatches on the file name extension.
func Read(name string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		return ReadCSV(r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".xls":
		return ReadXLS(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(path, f)
}

func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	t := Empty(header)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		t.Append(rec)
	}
	return t, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
