package models

// --- Health ---

// HealthRequest is a request to check server health.
type HealthRequest struct{}

// HealthResponse is a response from the health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// --- Cars ---

// ListCarsRequest is a request to list cars, optionally filtered by a model
// substring.
type ListCarsRequest struct {
	Query string `query:"q"`
}

// ListCarsResponse is a response containing cars.
type ListCarsResponse struct {
	Cars []CarView `json:"cars"`
}

// AddCarRequest is a request to add a car. Any JSON object is accepted:
// keys are folded, unknown keys dropped and values stringified by Normalize.
type AddCarRequest Fields

// AddCarResponse is a response from adding a car.
type AddCarResponse struct {
	Car CarView `json:"car"`
}

// EditCarRequest is a request to change fields of an existing car. Nil
// fields are left unchanged.
type EditCarRequest struct {
	Target          string  `path:"model"`
	Model           *string `json:"model,omitempty"`
	Manufacturer    *string `json:"manufacturer,omitempty"`
	Year            *string `json:"year,omitempty"`
	CountryOfOrigin *string `json:"country_of_origin,omitempty"`
	Category        *string `json:"category,omitempty"`
	ReplicaModel    *string `json:"replica_model,omitempty"`
	Info            *string `json:"info,omitempty"`
}

// Changes returns the fields to overlay on the stored record.
func (r *EditCarRequest) Changes() Fields {
	f := Fields{}
	for k, v := range map[string]*string{
		FieldModel:           r.Model,
		FieldManufacturer:    r.Manufacturer,
		FieldYear:            r.Year,
		FieldCountryOfOrigin: r.CountryOfOrigin,
		FieldCategory:        r.Category,
		FieldReplicaModel:    r.ReplicaModel,
		FieldInfo:            r.Info,
	} {
		if v != nil {
			f[k] = *v
		}
	}
	return f
}

// EditCarResponse is a response from editing a car.
type EditCarResponse struct {
	Updated bool `json:"updated"`
}

// DeleteCarRequest is a request to delete a car by model.
type DeleteCarRequest struct {
	Model string `path:"model"`
}

// DeleteCarResponse is a response from deleting a car.
type DeleteCarResponse struct {
	Deleted bool `json:"deleted"`
}

// ImportCarsRequest is a request to add many cars at once. Invalid items
// and duplicates are skipped.
type ImportCarsRequest struct {
	Cars []Fields `json:"cars"`
}

// ImportCarsResponse reports what an import did.
type ImportCarsResponse struct {
	Added      int `json:"added"`
	Invalid    int `json:"invalid"`
	Duplicates int `json:"duplicates"`
}

// SchemaRequest is a request for the JSON schema of a car.
type SchemaRequest struct{}
