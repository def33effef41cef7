// Package importer reads car records from JSON, CSV and XLSX files.
//
// Importers only shape the data into models.Fields. Normalization, validation
// and deduplication are left to storage.Tracker.AddMany.
package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/maruel/cartracker/internal/errors"
	"github.com/maruel/cartracker/internal/models"
)

// Formats lists the supported file extensions.
var Formats = []string{".json", ".csv", ".xlsx"}

// ReadFile reads path, picking the format from its extension.
func ReadFile(path string) ([]models.Fields, error) {
	var read func(io.Reader) ([]models.Fields, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		read = ReadJSON
	case ".csv":
		read = ReadCSV
	case ".xlsx":
		read = ReadXLSX
	default:
		return nil, errors.UnsupportedFormat(filepath.Base(path)).WithDetail("supported", Formats)
	}
	f, err := os.Open(path) //nolint:gosec // G304: path is given by the operator
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	items, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Read import file", "path", path, "items", len(items))
	return items, nil
}

// ReadJSON reads a single object or an array of objects. Array elements that
// are not objects are skipped.
func ReadJSON(r io.Reader) ([]models.Fields, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) != 0 && data[0] == '{' {
		var one models.Fields
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return []models.Fields{one}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	out := make([]models.Fields, 0, len(raw))
	for i, m := range raw {
		var f models.Fields
		if err := json.Unmarshal(m, &f); err != nil || f == nil {
			slog.Debug("Skipping non object element", "index", i)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// ReadCSV reads a CSV file whose first row names the fields.
func ReadCSV(r io.Reader) ([]models.Fields, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	if len(rows) != 0 && len(rows[0]) != 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return fromRows(rows), nil
}

// ReadXLSX reads the first sheet of a workbook whose first row names the
// fields.
func ReadXLSX(r io.Reader) ([]models.Fields, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid XLSX: %w", err)
	}
	defer func() { _ = f.Close() }()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []models.Fields{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows), nil
}

// fromRows turns a header row plus data rows into Fields. Missing cells are
// left out, empty header cells are named column_<i> and rows with no content
// are dropped.
func fromRows(rows [][]string) []models.Fields {
	out := []models.Fields{}
	if len(rows) == 0 {
		return out
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		if h = strings.TrimSpace(h); h == "" {
			header[i] = "column_" + strconv.Itoa(i)
		} else {
			header[i] = models.FoldKey(h)
		}
	}
	for _, row := range rows[1:] {
		f := models.Fields{}
		empty := true
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
			f[header[i]] = cell
		}
		if !empty {
			out = append(out, f)
		}
	}
	return out
}
