// Package models defines the car record and the rules that turn arbitrary
// key/value input into it.
package models

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Year bounds accepted for purely numeric years.
const (
	MinYear = 1885
	MaxYear = 2100
)

// Known field names. Order is the column order used by front ends.
const (
	FieldID              = "id"
	FieldModel           = "model"
	FieldManufacturer    = "manufacturer"
	FieldYear            = "year"
	FieldCountryOfOrigin = "country_of_origin"
	FieldCategory        = "category"
	FieldReplicaModel    = "replica_model"
	FieldInfo            = "info"
)

// AllowedFields lists every field that survives normalization, id included.
var AllowedFields = []string{
	FieldID,
	FieldModel,
	FieldManufacturer,
	FieldYear,
	FieldCountryOfOrigin,
	FieldCategory,
	FieldReplicaModel,
	FieldInfo,
}

// Fields is raw key/value input as produced by importers and front ends.
type Fields map[string]any

// Car is the canonical stored record.
type Car struct {
	ID              string `json:"id"`
	Model           string `json:"model"`
	Manufacturer    string `json:"manufacturer"`
	Year            string `json:"year"`
	CountryOfOrigin string `json:"country_of_origin"`
	Category        string `json:"category"`
	ReplicaModel    string `json:"replica_model"`
	Info            string `json:"info"`
}

// CarView is a Car as shown to callers: the internal id is never exposed.
type CarView struct {
	Model           string `json:"model" jsonschema:"minLength=1,description=Display name; unique case-insensitively"`
	Manufacturer    string `json:"manufacturer"`
	Year            string `json:"year" jsonschema:"description=Year of production; numeric years must be within 1885-2100"`
	CountryOfOrigin string `json:"country_of_origin"`
	Category        string `json:"category"`
	ReplicaModel    string `json:"replica_model"`
	Info            string `json:"info" jsonschema:"description=Free text, usually a link to more information"`
}

// View strips the id.
func (c *Car) View() CarView {
	return CarView{
		Model:           c.Model,
		Manufacturer:    c.Manufacturer,
		Year:            c.Year,
		CountryOfOrigin: c.CountryOfOrigin,
		Category:        c.Category,
		ReplicaModel:    c.ReplicaModel,
		Info:            c.Info,
	}
}

// SameModel reports whether both models are equal ignoring case and
// surrounding whitespace.
func SameModel(a, b string) bool {
	return strings.ToLower(strings.TrimSpace(a)) == strings.ToLower(strings.TrimSpace(b))
}

// MatchTerm reports whether term, trimmed and lower-cased, is a substring of
// the lower-cased model. The empty term matches everything.
func MatchTerm(model, term string) bool {
	return strings.Contains(strings.ToLower(model), strings.ToLower(strings.TrimSpace(term)))
}

// FoldKey lower-cases key and replaces spaces with underscores, the form
// column headers take before matching AllowedFields.
func FoldKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), " ", "_")
}

// Normalize converts arbitrary input into a Car. It never fails.
//
// Unknown keys are dropped, values are trimmed and stringified, the year goes
// through CoerceYear and a new id is generated when none is provided. When two
// input keys fold to the same field, a key already in folded form wins, then
// the lexicographically first one.
func Normalize(input Fields) Car {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	norm := make(map[string]any, len(AllowedFields))
	exact := make(map[string]bool, len(AllowedFields))
	for _, k := range keys {
		f := FoldKey(k)
		if !slices.Contains(AllowedFields, f) {
			continue
		}
		if _, seen := norm[f]; seen && (exact[f] || f != k) {
			continue
		}
		norm[f] = input[k]
		exact[f] = f == k
	}

	id := stringify(norm[FieldID])
	if id == "" {
		id = uuid.NewString()
	}
	return Car{
		ID:              id,
		Model:           stringify(norm[FieldModel]),
		Manufacturer:    stringify(norm[FieldManufacturer]),
		Year:            CoerceYear(norm[FieldYear]),
		CountryOfOrigin: stringify(norm[FieldCountryOfOrigin]),
		Category:        stringify(norm[FieldCategory]),
		ReplicaModel:    stringify(norm[FieldReplicaModel]),
		Info:            stringify(norm[FieldInfo]),
	}
}

// CoerceYear returns the canonical year for value.
//
// nil and blank become "". Text made only of ASCII digits is parsed and kept
// only if within [MinYear, MaxYear]; "0042" becomes "" and "02020" becomes
// "2020". Anything else, like "N/A" or "circa 1980", is returned trimmed.
func CoerceYear(value any) string {
	text := stringify(value)
	if text == "" {
		return ""
	}
	if !isDigits(text) {
		return text
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < MinYear || n > MaxYear {
		return ""
	}
	return strconv.Itoa(n)
}

// Validate returns whether c may be stored and, if not, why.
//
// The info field is never enforced. A purely numeric year outside the accepted
// range is reported; records produced by Normalize never have one.
func Validate(c *Car) (bool, []string) {
	var problems []string
	if strings.TrimSpace(c.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		problems = append(problems, "model is required")
	}
	if y := strings.TrimSpace(c.Year); isDigits(y) {
		if n, err := strconv.Atoi(y); err != nil || n < MinYear || n > MaxYear {
			problems = append(problems, fmt.Sprintf("year out of valid range (%d-%d)", MinYear, MaxYear))
		}
	}
	return len(problems) == 0, problems
}

// ToAllowedFields projects c on AllowedFields. Every value is a string.
func ToAllowedFields(c *Car) Fields {
	return Fields{
		FieldID:              c.ID,
		FieldModel:           c.Model,
		FieldManufacturer:    c.Manufacturer,
		FieldYear:            c.Year,
		FieldCountryOfOrigin: c.CountryOfOrigin,
		FieldCategory:        c.Category,
		FieldReplicaModel:    c.ReplicaModel,
		FieldInfo:            c.Info,
	}
}

var urlRe = regexp.MustCompile(`^(https?://)[\w.-]+(?::[0-9]+)?(?:/.*)?$`)

// ValidURL reports whether s looks like an http(s) link. It is informational
// only and never used to reject a record.
func ValidURL(s string) bool {
	return urlRe.MatchString(strings.TrimSpace(s))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// stringify renders a decoded JSON, CSV or spreadsheet value as trimmed text.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		// JSON numbers decode as float64; 2020 must not become "2020.0".
		if t == math.Trunc(t) && !math.IsInf(t, 0) && !math.IsNaN(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
