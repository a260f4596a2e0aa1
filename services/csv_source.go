package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrEmptySource = errors.New("source file has no header row")

// InspectCSV reads the whole file once, returning the normalized header map
// and the number of data rows (header excluded). A file with a header but no
// data rows is valid and yields total 0.
func InspectCSV(path string) (headers map[string]int, total int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	headerRow, err := r.Read()
	if err == io.EOF {
		return nil, 0, ErrEmptySource
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	headers = NormalizeHeaders(headerRow)
	if len(headers) == 0 {
		return nil, 0, ErrEmptySource
	}

	for {
		if _, err := r.Read(); err == io.EOF {
			break
		} else if err != nil {
			return nil, 0, fmt.Errorf("count rows: %w", err)
		}
		total++
	}
	return headers, total, nil
}

// ReadCSVBatch returns data rows [offset, offset+limit), capped at the end of
// the file, strictly in file order. The file is re-opened on every call so a
// step never depends on reader state from a previous step.
func ReadCSVBatch(path string, offset, limit int) (headers map[string]int, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	headerRow, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	headers = NormalizeHeaders(headerRow)

	for skipped := 0; skipped < offset; skipped++ {
		if _, err := r.Read(); err == io.EOF {
			return headers, nil, nil
		} else if err != nil {
			return nil, nil, fmt.Errorf("skip to row %d: %w", skipped+1, err)
		}
	}

	for len(rows) < limit {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", offset+len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}
