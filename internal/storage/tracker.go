// Package storage implements the car repository on top of a JSON document,
// plus the read cache, configuration and file watching used by front ends.
package storage

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/maruel/cartracker/internal/errors"
	"github.com/maruel/cartracker/internal/jsonldb"
	"github.com/maruel/cartracker/internal/models"
)

// ImportResult reports what a bulk add did.
type ImportResult struct {
	Added      int
	Invalid    int
	Duplicates int
}

// Tracker is the only component allowed to mutate the car collection.
//
// Every method returns the failure shape (false or an empty slice) together
// with an *errors.APIError when it can't complete. Nothing panics.
type Tracker struct {
	path string

	mu  sync.Mutex
	doc *jsonldb.Document[models.Fields]
}

// NewTracker returns a Tracker persisting to path.
//
// Opening the document may fail (e.g. the directory can't be created); the
// failure is logged and every operation retries once before giving up.
func NewTracker(path string) *Tracker {
	t := &Tracker{path: path}
	if _, err := t.document(); err != nil {
		slog.Warn("Car store unavailable, will retry on use", "path", path, "err", err)
	}
	return t
}

// Path returns the backing file path.
func (t *Tracker) Path() string {
	return t.path
}

// document returns the store handle, trying to open it if a previous attempt
// failed.
func (t *Tracker) document() (*jsonldb.Document[models.Fields], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.doc != nil {
		return t.doc, nil
	}
	doc, err := jsonldb.NewDocument[models.Fields](t.path)
	if err != nil {
		return nil, errors.Storage("car store unavailable", err)
	}
	t.doc = doc
	return doc, nil
}

// Add normalizes and validates fields, then stores the car unless one with
// the same model already exists.
func (t *Tracker) Add(fields models.Fields) (bool, error) {
	car := models.Normalize(fields)
	if ok, problems := models.Validate(&car); !ok {
		return false, errors.Validation(problems)
	}
	doc, err := t.document()
	if err != nil {
		return false, err
	}
	err = doc.Modify(func(rows []models.Fields) ([]models.Fields, error) {
		cars := decode(rows)
		for _, c := range cars {
			if models.SameModel(c.Model, car.Model) {
				return nil, duplicate(car.Model)
			}
		}
		return encode(append(cars, car)), nil
	})
	if err != nil {
		return false, wrapStorage("failed to add car", err)
	}
	slog.Debug("Added car", "model", car.Model)
	return true, nil
}

// AddMany adds every valid, non-duplicate item with a single write. Invalid
// items and duplicates are counted and skipped without aborting the batch.
func (t *Tracker) AddMany(items []models.Fields) (ImportResult, error) {
	var res ImportResult
	doc, err := t.document()
	if err != nil {
		return res, err
	}
	err = doc.Modify(func(rows []models.Fields) ([]models.Fields, error) {
		res = ImportResult{}
		cars := decode(rows)
		seen := make(map[string]bool, len(cars)+len(items))
		for _, c := range cars {
			seen[modelKey(c.Model)] = true
		}
		for _, item := range items {
			car := models.Normalize(item)
			if ok, _ := models.Validate(&car); !ok {
				res.Invalid++
				continue
			}
			if seen[modelKey(car.Model)] {
				res.Duplicates++
				continue
			}
			seen[modelKey(car.Model)] = true
			cars = append(cars, car)
			res.Added++
		}
		if res.Added == 0 {
			return nil, errNothingChanged
		}
		return encode(cars), nil
	})
	if err != nil && !stderrors.Is(err, errNothingChanged) {
		return ImportResult{}, wrapStorage("failed to import cars", err)
	}
	slog.Debug("Imported cars", "added", res.Added, "invalid", res.Invalid, "duplicates", res.Duplicates)
	return res, nil
}

// Search returns the cars whose model contains term, ignoring case. The empty
// term matches every car.
func (t *Tracker) Search(term string) ([]models.CarView, error) {
	cars, err := t.load()
	if err != nil {
		return []models.CarView{}, err
	}
	out := []models.CarView{}
	for i := range cars {
		if models.MatchTerm(cars[i].Model, term) {
			out = append(out, cars[i].View())
		}
	}
	return out, nil
}

// List returns every car.
func (t *Tracker) List() ([]models.CarView, error) {
	return t.Search("")
}

// Delete removes every car whose model matches model ignoring case. It returns
// false without writing when nothing matched.
func (t *Tracker) Delete(model string) (bool, error) {
	doc, err := t.document()
	if err != nil {
		return false, err
	}
	removed := 0
	err = doc.Modify(func(rows []models.Fields) ([]models.Fields, error) {
		cars := decode(rows)
		kept := cars[:0]
		for _, c := range cars {
			if models.SameModel(c.Model, model) {
				continue
			}
			kept = append(kept, c)
		}
		removed = len(cars) - len(kept)
		if removed == 0 {
			return nil, errNothingChanged
		}
		return encode(kept), nil
	})
	if stderrors.Is(err, errNothingChanged) {
		return false, nil
	}
	if err != nil {
		return false, wrapStorage("failed to delete car", err)
	}
	slog.Debug("Deleted car", "model", model, "count", removed)
	return true, nil
}

// Edit overlays changes on the car matching model and stores the result as a
// new entry (delete then add), keeping its id. It returns false without
// writing when no car matches.
func (t *Tracker) Edit(model string, changes models.Fields) (bool, error) {
	doc, err := t.document()
	if err != nil {
		return false, err
	}
	err = doc.Modify(func(rows []models.Fields) ([]models.Fields, error) {
		cars := decode(rows)
		idx := -1
		for i := range cars {
			if models.SameModel(cars[i].Model, model) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, errNothingChanged
		}
		merged := models.ToAllowedFields(&cars[idx])
		for k, v := range changes {
			if f := models.FoldKey(k); f != models.FieldID {
				merged[f] = v
			}
		}
		car := models.Normalize(merged)
		if ok, problems := models.Validate(&car); !ok {
			return nil, errors.Validation(problems)
		}
		rest := append(cars[:idx:idx], cars[idx+1:]...)
		for _, c := range rest {
			if models.SameModel(c.Model, car.Model) {
				return nil, duplicate(car.Model)
			}
		}
		return encode(append(rest, car)), nil
	})
	if stderrors.Is(err, errNothingChanged) {
		return false, nil
	}
	if err != nil {
		return false, wrapStorage("failed to edit car", err)
	}
	slog.Debug("Edited car", "model", model)
	return true, nil
}

// load returns the stored cars that are valid after normalization.
func (t *Tracker) load() ([]models.Car, error) {
	doc, err := t.document()
	if err != nil {
		return nil, err
	}
	rows, err := doc.Load()
	if err != nil {
		return nil, errors.Storage("failed to load cars", err)
	}
	return decode(rows), nil
}

// errNothingChanged aborts a Modify without writing.
var errNothingChanged = stderrors.New("nothing changed")

// decode normalizes raw rows and drops those that fail validation.
func decode(rows []models.Fields) []models.Car {
	cars := make([]models.Car, 0, len(rows))
	for _, r := range rows {
		c := models.Normalize(r)
		if ok, problems := models.Validate(&c); !ok {
			slog.Debug("Dropping invalid stored car", "model", c.Model, "problems", problems)
			continue
		}
		cars = append(cars, c)
	}
	return cars
}

func encode(cars []models.Car) []models.Fields {
	rows := make([]models.Fields, len(cars))
	for i := range cars {
		rows[i] = models.ToAllowedFields(&cars[i])
	}
	return rows
}

func modelKey(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}

func duplicate(model string) error {
	return errors.Conflict(fmt.Sprintf("a car with model %q already exists", model)).WithDetail("model", model)
}

// wrapStorage keeps domain errors raised inside Modify and wraps everything
// else as a storage failure.
func wrapStorage(msg string, err error) error {
	var ews errors.ErrorWithStatus
	if stderrors.As(err, &ews) {
		return err
	}
	return errors.Storage(msg, err)
}
