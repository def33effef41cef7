package handlers

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/maruel/cartracker/internal/models"
)

// CarSchema returns the JSON schema of a car as returned by the API, with
// properties inlined.
func CarSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := r.Reflect(&models.CarView{})
	s.Title = "Car"
	s.Description = "A car in the collection"
	return s
}

// Schema returns the JSON schema of a car.
func Schema(ctx context.Context, req models.SchemaRequest) (*jsonschema.Schema, error) {
	return CarSchema(), nil
}
