package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"pricetier/internal/model"
)

// ReadTable loads a raw table from a CSV or XLSX file, chosen by extension.
// A missing file yields ErrFileNotFound; a file with a header but no rows
// yields ErrEmptyInput.
func ReadTable(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, model.ErrFileNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var (
		t   *Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		t, err = readXLSX(path)
	default:
		t, err = readCSVFile(path)
	}
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("read %s: %w", path, model.ErrEmptyInput)
	}
	return t, nil
}

func readCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a CSV stream whose first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv: %w", model.ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	t := &Table{Header: normaliseHeader(header)}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", t.Len()+1, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// readXLSX reads the first sheet of a workbook. excelize trims trailing empty
// cells, so short rows are padded to the header width.
func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open %q: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx: %q has no sheets: %w", path, model.ErrEmptyInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("xlsx: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx: %q: %w", path, model.ErrEmptyInput)
	}

	t := &Table{Header: normaliseHeader(rows[0])}
	width := len(t.Header)
	for _, row := range rows[1:] {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		t.Rows = append(t.Rows, row[:width])
	}
	return t, nil
}

func normaliseHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}
