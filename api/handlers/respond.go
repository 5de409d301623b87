package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"status-service/core/incidents"
	"status-service/core/utils"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeValidation(w http.ResponseWriter, fields ...incidents.FieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": fields})
}

// writeError maps service errors onto status codes. Anything unexpected is
// logged and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, logger *utils.Logger, err error) {
	var verr *incidents.ValidationError
	var nf *incidents.NotFoundError
	switch {
	case errors.As(err, &verr):
		writeValidation(w, verr.Fields...)
	case errors.As(err, &nf):
		writeDetail(w, http.StatusNotFound, capitalize(nf.Kind)+" not found")
	default:
		if logger != nil {
			logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		}
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// decodeJSON reads a single JSON document into dst. Failures come back as
// field errors located in the body. populated reports whether dst was still
// filled; that holds when the only failure is a field of the wrong type.
func decodeJSON(r *http.Request, dst any) (fields []incidents.FieldError, populated bool) {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		return []incidents.FieldError{decodeFieldError(err)}, errors.As(err, &typeErr)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return []incidents.FieldError{{Loc: []any{"body"}, Msg: "JSON decode error: trailing data", Type: "json_invalid"}}, false
	}
	return nil, true
}

// mergeFieldErrors appends extra to fields, skipping locations already
// reported. A wrong-typed field also reads as missing to the validator.
func mergeFieldErrors(fields, extra []incidents.FieldError) []incidents.FieldError {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		seen[fmt.Sprint(f.Loc)] = true
	}
	for _, f := range extra {
		key := fmt.Sprint(f.Loc)
		if seen[key] {
			continue
		}
		seen[key] = true
		fields = append(fields, f)
	}
	return fields
}

func decodeFieldError(err error) incidents.FieldError {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		loc := []any{"body"}
		for _, part := range strings.Split(typeErr.Field, ".") {
			if part != "" {
				loc = append(loc, part)
			}
		}
		return incidents.FieldError{Loc: loc, Msg: "Input should be a valid " + jsonKind(typeErr.Type.Kind().String()), Type: jsonKind(typeErr.Type.Kind().String()) + "_type"}
	case errors.As(err, &syntaxErr):
		return incidents.FieldError{Loc: []any{"body", syntaxErr.Offset}, Msg: "JSON decode error", Type: "json_invalid"}
	case errors.As(err, &maxErr):
		return incidents.FieldError{Loc: []any{"body"}, Msg: fmt.Sprintf("Request body larger than %d bytes", maxErr.Limit), Type: "too_large"}
	case errors.Is(err, io.EOF):
		return incidents.FieldError{Loc: []any{"body"}, Msg: "Field required", Type: "missing"}
	default:
		return incidents.FieldError{Loc: []any{"body"}, Msg: "JSON decode error", Type: "json_invalid"}
	}
}

func jsonKind(kind string) string {
	switch kind {
	case "slice", "array":
		return "list"
	case "struct", "map", "ptr":
		return "dictionary"
	case "int", "int64", "int32":
		return "integer"
	default:
		return kind
	}
}
