package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/maruel/cartracker/internal/errors"
	"github.com/maruel/cartracker/internal/models"
)

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"array", `[{"model":"Mini"},{"Model":"Fiat 500","year":1957}]`, 2, false},
		{"single object", ` {"model":"Mini"} `, 1, false},
		{"non objects skipped", `[{"model":"Mini"}, 1, "x", null, [1]]`, 1, false},
		{"empty array", `[]`, 0, false},
		{"garbage", `not json`, 0, true},
		{"scalar", `42`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadJSON(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("ReadJSON() = %v, want %d items", got, tt.want)
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffModel,Manufacturer,Year,Country Of Origin\n" +
		"Toyota Corolla,Toyota,2020,Japan\n" +
		",,,\n" +
		"Honda Civic,Honda\n" +
		"Mini,BMC,1959,UK,extra\n"
	got, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadCSV() = %v, want 3 rows", got)
	}
	if got[0]["model"] != "Toyota Corolla" || got[0]["country_of_origin"] != "Japan" {
		t.Errorf("first row = %v", got[0])
	}
	if _, ok := got[1]["year"]; ok {
		t.Errorf("short row has a year: %v", got[1])
	}
	if len(got[2]) != 4 {
		t.Errorf("extra cell kept: %v", got[2])
	}
	c := models.Normalize(got[0])
	if c.Model != "Toyota Corolla" || c.Year != "2020" || c.CountryOfOrigin != "Japan" {
		t.Errorf("normalized = %+v", c)
	}

	if _, err := ReadCSV(strings.NewReader("a,\"b\n")); err == nil {
		t.Error("expected error on unterminated quote")
	}
	if got, err := ReadCSV(strings.NewReader("")); err != nil || len(got) != 0 {
		t.Errorf("ReadCSV(\"\") = %v, %v", got, err)
	}
}

func writeXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := writeXLSX(t, [][]any{
		{"Model", "Year", "", "Replica Model"},
		{"Toyota Corolla", 2020, "note", "Tomica"},
		{},
		{"Honda Civic"},
	})
	got, err := ReadXLSX(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadXLSX failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadXLSX() = %v, want 2 rows", got)
	}
	first := got[0]
	if first["model"] != "Toyota Corolla" || first["year"] != "2020" || first["column_2"] != "note" || first["replica_model"] != "Tomica" {
		t.Errorf("first row = %v", first)
	}
	if got[1]["model"] != "Honda Civic" {
		t.Errorf("second row = %v", got[1])
	}

	if _, err := ReadXLSX(strings.NewReader("not a zip")); err == nil {
		t.Error("expected error on invalid workbook")
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"cars.json": []byte(`[{"model":"Mini"}]`),
		"cars.CSV":  []byte("model\nMini\n"),
		"cars.xlsx": writeXLSX(t, [][]any{{"model"}, {"Mini"}}),
	}
	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) failed: %v", name, err)
		}
		if len(got) != 1 || got[0]["model"] != "Mini" {
			t.Errorf("ReadFile(%s) = %v", name, got)
		}
	}

	t.Run("unsupported", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(dir, "cars.txt"))
		if !errors.HasCode(err, errors.ErrUnsupportedFormat) {
			t.Errorf("ReadFile() error = %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := ReadFile(filepath.Join(dir, "missing.json")); !os.IsNotExist(err) {
			t.Errorf("ReadFile() error = %v", err)
		}
	})
}
