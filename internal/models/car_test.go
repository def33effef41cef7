package models

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"
)

func TestCoerceYear(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"blank", "   ", ""},
		{"lower bound", "1885", "1885"},
		{"upper bound", "2100", "2100"},
		{"below range", "1884", ""},
		{"above range", "2101", ""},
		{"way out of range", "1700", ""},
		{"leading zeros", "02020", "2020"},
		{"overflow", "99999999999999999999999", ""},
		{"trimmed", " 1999 ", "1999"},
		{"non numeric", "abc", "abc"},
		{"not available", "N/A", "N/A"},
		{"circa", " circa 1980 ", "circa 1980"},
		{"negative", "-1990", "-1990"},
		{"json number", float64(2020), "2020"},
		{"json fraction", 2020.5, "2020.5"},
		{"int", 1969, "1969"},
		{"int out of range", 3000, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceYear(tt.input); got != tt.want {
				t.Errorf("CoerceYear(%#v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("folds keys and drops unknown", func(t *testing.T) {
		c := Normalize(Fields{
			"Model":             "  Toyota Corolla ",
			"MANUFACTURER":      "Toyota",
			"Country Of Origin": "Japan",
			"Replica Model":     "Tomica",
			"color":             "red",
			"year":              "2020",
		})
		want := CarView{
			Model:           "Toyota Corolla",
			Manufacturer:    "Toyota",
			Year:            "2020",
			CountryOfOrigin: "Japan",
			ReplicaModel:    "Tomica",
		}
		if got := c.View(); got != want {
			t.Errorf("Normalize() view = %+v, want %+v", got, want)
		}
		if c.ID == "" {
			t.Error("expected a generated id")
		}
	})

	t.Run("preserves id", func(t *testing.T) {
		c := Normalize(Fields{"id": "  abc-123 ", "model": "Mini"})
		if c.ID != "abc-123" {
			t.Errorf("ID = %q, want %q", c.ID, "abc-123")
		}
	})

	t.Run("blank id regenerated", func(t *testing.T) {
		a := Normalize(Fields{"id": "   ", "model": "Mini"})
		b := Normalize(Fields{"model": "Mini"})
		if a.ID == "" || b.ID == "" || a.ID == b.ID {
			t.Errorf("expected distinct generated ids, got %q and %q", a.ID, b.ID)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		c := Normalize(nil)
		if c.ID == "" {
			t.Error("expected a generated id")
		}
		if c.View() != (CarView{}) {
			t.Errorf("expected empty fields, got %+v", c.View())
		}
	})

	t.Run("non string values", func(t *testing.T) {
		var in Fields
		if err := json.Unmarshal([]byte(`{"model":911,"year":1964,"info":null,"category":true}`), &in); err != nil {
			t.Fatal(err)
		}
		c := Normalize(in)
		if c.Model != "911" || c.Year != "1964" || c.Info != "" || c.Category != "true" {
			t.Errorf("unexpected normalization: %+v", c)
		}
	})

	t.Run("folded key collision is deterministic", func(t *testing.T) {
		for range 20 {
			c := Normalize(Fields{"Model": "B", "model": "A", "MODEL": "C"})
			if c.Model != "A" {
				t.Fatalf("Model = %q, want the canonical key to win", c.Model)
			}
			c = Normalize(Fields{"Model": "B", "MODEL": "C"})
			if c.Model != "C" {
				t.Fatalf("Model = %q, want lexicographically first key to win", c.Model)
			}
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := []Fields{
			{"model": "Ford Mustang", "year": "1964", "info": "https://example.com"},
			{"Model": " Fiat 500 ", "year": "1700", "extra": 1},
			{"model": "DeLorean", "year": "N/A", "id": "fixed"},
		}
		for _, in := range inputs {
			once := Normalize(in)
			twice := Normalize(ToAllowedFields(&once))
			if once != twice {
				t.Errorf("Normalize not idempotent: %+v != %+v", once, twice)
			}
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		car      Car
		ok       bool
		problems []string
	}{
		{"valid", Car{ID: "1", Model: "Mini"}, true, nil},
		{"missing id", Car{Model: "Mini"}, false, []string{"id is required"}},
		{"missing model", Car{ID: "1", Model: "  "}, false, []string{"model is required"}},
		{"numeric year out of range", Car{ID: "1", Model: "Mini", Year: "1700"}, false, []string{"year out of valid range (1885-2100)"}},
		{"non numeric year", Car{ID: "1", Model: "Mini", Year: "N/A"}, true, nil},
		{"info is not enforced", Car{ID: "1", Model: "Mini", Info: "not a link"}, true, nil},
		{"everything wrong", Car{Year: "3000"}, false, []string{"id is required", "model is required", "year out of valid range (1885-2100)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, problems := Validate(&tt.car)
			if ok != tt.ok || !slices.Equal(problems, tt.problems) {
				t.Errorf("Validate() = %v, %q; want %v, %q", ok, problems, tt.ok, tt.problems)
			}
		})
	}

	t.Run("normalized out of range year is valid", func(t *testing.T) {
		c := Normalize(Fields{"model": "Benz Patent-Motorwagen", "year": "1700"})
		if c.Year != "" {
			t.Errorf("Year = %q, want empty", c.Year)
		}
		if ok, problems := Validate(&c); !ok {
			t.Errorf("Validate() problems = %q", problems)
		}
	})
}

func TestToAllowedFields(t *testing.T) {
	c := Car{ID: "x", Model: "Mini", Year: "1959"}
	f := ToAllowedFields(&c)
	keys := make([]string, 0, len(f))
	for k, v := range f {
		keys = append(keys, k)
		if _, ok := v.(string); !ok {
			t.Errorf("field %q has non string value %#v", k, v)
		}
	}
	slices.Sort(keys)
	want := slices.Clone(AllowedFields)
	slices.Sort(want)
	if !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestMatchTerm(t *testing.T) {
	tests := []struct {
		model, term string
		want        bool
	}{
		{"Toyota Corolla", "", true},
		{"Toyota Corolla", "  ", true},
		{"Toyota Corolla", "corolla", true},
		{"Toyota Corolla", " TOYOTA ", true},
		{"Toyota Corolla", "yota co", true},
		{"Toyota Corolla", "honda", false},
	}
	for _, tt := range tests {
		if got := MatchTerm(tt.model, tt.term); got != tt.want {
			t.Errorf("MatchTerm(%q, %q) = %v, want %v", tt.model, tt.term, got, tt.want)
		}
	}
	if !SameModel("Toyota Corolla", " toyota corolla") || SameModel("Toyota", "Toyota Corolla") {
		t.Error("SameModel mismatch")
	}
}

func TestValidURL(t *testing.T) {
	for _, s := range []string{"http://example.com", "https://en.wikipedia.org/wiki/Mini", " https://host:8080/x "} {
		if !ValidURL(s) {
			t.Errorf("ValidURL(%q) = false", s)
		}
	}
	for _, s := range []string{"", "example.com", "ftp://example.com", "https://"} {
		if ValidURL(s) {
			t.Errorf("ValidURL(%q) = true", s)
		}
	}
}

func TestRequestFields(t *testing.T) {
	r := AddCarRequest{"Model": "Mini", "year": float64(1959)}
	c := Normalize(Fields(r))
	if c.Model != "Mini" || c.Year != "1959" {
		t.Errorf("unexpected car %+v", c)
	}
	year := ""
	e := EditCarRequest{Year: &year}
	ch := e.Changes()
	if len(ch) != 1 || ch[FieldYear] != "" {
		t.Errorf("Changes() = %v", ch)
	}
	if strings.Contains(FoldKey("Country Of Origin"), " ") {
		t.Error("FoldKey kept spaces")
	}
}
