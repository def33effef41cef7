// Adapts typed handler functions to http.Handler.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/maruel/cartracker/internal/errors"
)

// maxBodyBytes bounds request bodies. Imports are the largest.
const maxBodyBytes = 10 << 20

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Path parameters are extracted into fields tagged `path:"name"` and query
// parameters into fields tagged `query:"name"`.
//
// Example:
//
//	type DeleteCarRequest struct {
//	    Model string `path:"model"`
//	}
//
//	func (h *CarHandler) DeleteCar(ctx context.Context, req DeleteCarRequest) (*DeleteCarResponse, error)
func Wrap[In any, Out any](fn func(context.Context, In) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var input In
		if !readAndDecodeBody(ctx, w, r, &input) {
			return
		}
		populatePathParams(r, &input)
		populateQueryParams(r, &input)
		output, err := fn(ctx, input)
		writeJSONResponse(ctx, w, output, err)
	})
}

// readAndDecodeBody reads the request body with a size limit and decodes JSON
// into input. Returns false if an error was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			writeErrorResponseWithCode(w, http.StatusRequestEntityTooLarge, errors.ErrValidationFailed, "request body too large", map[string]any{"limit": maxErr.Limit})
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		writeErrorResponseWithCode(w, http.StatusBadRequest, errors.ErrValidationFailed, "Failed to read request body", nil)
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	d := json.NewDecoder(bytes.NewReader(body))
	d.DisallowUnknownFields()
	if err := d.Decode(input); err != nil {
		slog.WarnContext(ctx, "Failed to decode request body", "err", err)
		writeErrorResponseWithCode(w, http.StatusBadRequest, errors.ErrValidationFailed, "Invalid request body: "+err.Error(), nil)
		return false
	}
	return true
}

// writeJSONResponse writes output, or err mapped to its status and code.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorCode := errors.ErrInternal
		var details map[string]any
		var ews errors.ErrorWithStatus
		if stderrors.As(err, &ews) {
			statusCode = ews.StatusCode()
			errorCode = ews.Code()
			details = ews.Details()
		}
		if statusCode >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "Handler error", "id", RequestID(ctx), "err", err, "statusCode", statusCode, "code", errorCode)
		} else {
			slog.InfoContext(ctx, "Request rejected", "id", RequestID(ctx), "err", err, "statusCode", statusCode, "code", errorCode)
		}
		writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// structFields returns the addressable struct behind input, if any.
func structFields(input any) (reflect.Value, bool) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return reflect.Value{}, false
	}
	elem := val.Elem()
	return elem, elem.Kind() == reflect.Struct
}

// populatePathParams sets string fields tagged `path:"name"` from the
// matched route.
func populatePathParams(r *http.Request, input any) {
	elem, ok := structFields(input)
	if !ok {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" || field.Type.Kind() != reflect.String {
			continue
		}
		if v := r.PathValue(tag); v != "" {
			elem.Field(i).SetString(v)
		}
	}
}

// populateQueryParams sets fields tagged `query:"name"` from the URL query.
func populateQueryParams(r *http.Request, input any) {
	elem, ok := structFields(input)
	if !ok {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		v := query.Get(tag)
		if v == "" {
			continue
		}
		//nolint:exhaustive // Only string, bool and int query parameters are used.
		switch field.Type.Kind() {
		case reflect.String:
			elem.Field(i).SetString(v)
		case reflect.Bool:
			if b, err := strconv.ParseBool(v); err == nil {
				elem.Field(i).SetBool(b)
			}
		case reflect.Int:
			if n, err := strconv.Atoi(v); err == nil {
				elem.Field(i).SetInt(int64(n))
			}
		default:
		}
	}
}

// writeErrorResponseWithCode writes an error response as JSON with code and details.
func writeErrorResponseWithCode(w http.ResponseWriter, statusCode int, code errors.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
	if len(details) > 0 {
		response["details"] = details
	}
	_ = json.NewEncoder(w).Encode(response)
}
