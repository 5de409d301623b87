package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"status-service/core/incidents"
	"status-service/core/utils"

	"github.com/go-chi/chi/v5"
)

func pathParams(r *http.Request) map[string]string {
	out := map[string]string{}
	rc := chi.RouteContext(r.Context())
	if rc != nil {
		for i, key := range rc.URLParams.Keys {
			if i < len(rc.URLParams.Values) {
				out[key] = rc.URLParams.Values[i]
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	// Fallback for direct handler tests without chi route context.
	segments := strings.Split(strings.Trim(strings.TrimSpace(r.URL.Path), "/"), "/")
	addParamAfter(segments, "incidents", "id", out)
	return out
}

func addParamAfter(segments []string, marker, key string, out map[string]string) {
	if _, exists := out[key]; exists {
		return
	}
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == marker && strings.TrimSpace(segments[i+1]) != "" {
			out[key] = segments[i+1]
			return
		}
	}
}

// pathID parses the {id} segment; loc names the field in error bodies.
func pathID(r *http.Request, loc string) (int64, *incidents.FieldError) {
	raw := pathParams(r)["id"]
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &incidents.FieldError{
			Loc:  []any{"path", loc},
			Msg:  "Input should be a valid integer, unable to parse string as an integer",
			Type: "int_parsing",
		}
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (*int, *incidents.FieldError) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &incidents.FieldError{
			Loc:  []any{"query", name},
			Msg:  "Input should be a valid integer, unable to parse string as an integer",
			Type: "int_parsing",
		}
	}
	return &v, nil
}

func queryTime(r *http.Request, name string) (*time.Time, *incidents.FieldError) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := utils.ParseDateTime(raw)
	if err != nil {
		return nil, &incidents.FieldError{
			Loc:  []any{"query", name},
			Msg:  "Input should be a valid datetime",
			Type: "datetime_parsing",
		}
	}
	return &t, nil
}

func queryBool(r *http.Request, name string) (bool, *incidents.FieldError) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name)))
	switch raw {
	case "":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, &incidents.FieldError{
		Loc:  []any{"query", name},
		Msg:  "Input should be a valid boolean, unable to interpret input",
		Type: "bool_parsing",
	}
}
