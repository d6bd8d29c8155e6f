package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ksred/dealbook/internal/table"
)

// Sheet is a named table written as one worksheet or one CSV file.
type Sheet struct {
	Name  string
	Table *table.Table
}

// WriteXLSX writes every sheet into a single workbook, in order. Cells that
// parse as numbers are stored as numbers.
func WriteXLSX(w io.Writer, sheets []Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	keepDefault := false
	for _, s := range sheets {
		if s.Name == defaultSheet {
			keepDefault = true
		}
		if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", s.Name, err)
		}
		if err := writeSheet(f, s); err != nil {
			return err
		}
	}
	if len(sheets) > 0 {
		if !keepDefault {
			if err := f.DeleteSheet(defaultSheet); err != nil {
				return fmt.Errorf("failed to remove default sheet: %w", err)
			}
		}
		idx, err := f.GetSheetIndex(sheets[0].Name)
		if err != nil {
			return fmt.Errorf("failed to locate sheet %q: %w", sheets[0].Name, err)
		}
		f.SetActiveSheet(idx)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s Sheet) error {
	if s.Table == nil {
		return nil
	}
	rows := append([][]string{s.Table.Columns}, s.Table.Rows...)
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v, i == 0)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.Name, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+1, s.Name, err)
		}
	}
	return nil
}

func cellValue(v string, header bool) interface{} {
	if header {
		return v
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

// WriteCSV writes a table with its header row.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// FileName turns a sheet name into a CSV file name, "A Book Raw" becoming
// "a_book_raw.csv".
func FileName(sheet string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(sheet)), " ", "_") + ".csv"
}

// WriteCSVDir writes one CSV file per sheet into dir, creating it if needed.
func WriteCSVDir(dir string, sheets []Sheet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, s := range sheets {
		if s.Table == nil {
			continue
		}
		if err := writeCSVFile(filepath.Join(dir, FileName(s.Name)), s.Table); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
