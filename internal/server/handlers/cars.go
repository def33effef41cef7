package handlers

import (
	"context"
	"log/slog"

	"github.com/maruel/cartracker/internal/errors"
	"github.com/maruel/cartracker/internal/models"
	"github.com/maruel/cartracker/internal/storage"
)

// CarHandler handles car HTTP requests.
//
// Reads are served from the cache. After every successful write the cache is
// invalidated and onChange is called so connected clients can refresh.
type CarHandler struct {
	tracker  *storage.Tracker
	cache    *storage.ReadCache
	onChange func()
}

// NewCarHandler creates a new car handler. onChange may be nil.
func NewCarHandler(tracker *storage.Tracker, cache *storage.ReadCache, onChange func()) *CarHandler {
	if onChange == nil {
		onChange = func() {}
	}
	return &CarHandler{tracker: tracker, cache: cache, onChange: onChange}
}

// ListCars returns every car, or those whose model contains the query.
func (h *CarHandler) ListCars(ctx context.Context, req models.ListCarsRequest) (*models.ListCarsResponse, error) {
	var cars []models.CarView
	var err error
	if req.Query == "" {
		cars, err = h.cache.Get(false)
	} else {
		cars, err = h.cache.Search(req.Query)
	}
	if err != nil {
		return nil, err
	}
	return &models.ListCarsResponse{Cars: cars}, nil
}

// AddCar adds a car.
func (h *CarHandler) AddCar(ctx context.Context, req models.AddCarRequest) (*models.AddCarResponse, error) {
	fields := models.Fields(req)
	if _, err := h.tracker.Add(fields); err != nil {
		return nil, err
	}
	h.changed(ctx, "add")
	car := models.Normalize(fields)
	return &models.AddCarResponse{Car: car.View()}, nil
}

// EditCar changes the fields of the car whose model matches the path.
func (h *CarHandler) EditCar(ctx context.Context, req models.EditCarRequest) (*models.EditCarResponse, error) {
	if req.Target == "" {
		return nil, errors.MissingField("model")
	}
	changes := req.Changes()
	if len(changes) == 0 {
		return nil, errors.BadRequest("no field to change")
	}
	ok, err := h.tracker.Edit(req.Target, changes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NotFound("car " + req.Target)
	}
	h.changed(ctx, "edit")
	return &models.EditCarResponse{Updated: true}, nil
}

// DeleteCar deletes the cars whose model matches the path.
func (h *CarHandler) DeleteCar(ctx context.Context, req models.DeleteCarRequest) (*models.DeleteCarResponse, error) {
	if req.Model == "" {
		return nil, errors.MissingField("model")
	}
	ok, err := h.tracker.Delete(req.Model)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NotFound("car " + req.Model)
	}
	h.changed(ctx, "delete")
	return &models.DeleteCarResponse{Deleted: true}, nil
}

// ImportCars adds many cars at once.
func (h *CarHandler) ImportCars(ctx context.Context, req models.ImportCarsRequest) (*models.ImportCarsResponse, error) {
	res, err := h.tracker.AddMany(req.Cars)
	if err != nil {
		return nil, err
	}
	if res.Added > 0 {
		h.changed(ctx, "import")
	}
	return &models.ImportCarsResponse{Added: res.Added, Invalid: res.Invalid, Duplicates: res.Duplicates}, nil
}

func (h *CarHandler) changed(ctx context.Context, op string) {
	slog.DebugContext(ctx, "Cars changed", "op", op)
	h.cache.Invalidate()
	h.onChange()
}
