package incidents

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"status-service/config"
	"status-service/core/store"

	"github.com/go-playground/validator/v10"
)

// IncidentCreate is the body of POST /incidents.
type IncidentCreate struct {
	Service       string                `json:"service" validate:"required,max=100"`
	PreviousState string                `json:"previous_state" validate:"required,max=50"`
	CurrentState  string                `json:"current_state" validate:"required,max=50"`
	Incident      *IncidentDetailCreate `json:"incident" validate:"required"`
}

// IncidentDetailCreate is the "incident" object of a create request.
// Description must be present but may be empty.
type IncidentDetailCreate struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description *string  `json:"description" validate:"required,max=1000"`
	Components  []string `json:"components" validate:"required,dive,required"`
	URL         string   `json:"url" validate:"required,http_url,max=500"`
}

func (in IncidentCreate) fields() store.IncidentFields {
	f := store.IncidentFields{
		Service:       in.Service,
		PreviousState: in.PreviousState,
		CurrentState:  in.CurrentState,
	}
	if in.Incident != nil {
		f.Title = in.Incident.Title
		if in.Incident.Description != nil {
			f.Description = *in.Incident.Description
		}
		f.Components = append([]string{}, in.Incident.Components...)
		f.URL = in.Incident.URL
	}
	return f
}

type requestValidator struct {
	v      *validator.Validate
	states config.IncidentsConfig
}

func newRequestValidator(cfg config.IncidentsConfig) *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v, states: cfg}
}

// Check returns a *ValidationError naming every violated field, or nil.
func (rv *requestValidator) Check(in IncidentCreate) error {
	verr := &ValidationError{}
	if err := rv.v.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			msg, typ := describe(fe)
			verr.add(msg, typ, fieldLoc(fe.Namespace())...)
		}
	}
	for _, st := range []struct {
		name  string
		value string
	}{{"previous_state", in.PreviousState}, {"current_state", in.CurrentState}} {
		if st.value == "" || rv.states.StateAllowed(st.value) {
			continue
		}
		verr.add(fmt.Sprintf("Input should be %s", quotedChoices(rv.states.AllowedStates)), "enum", "body", st.name)
	}
	return verr.orNil()
}

// fieldLoc turns "IncidentCreate.incident.components[1]" into
// ["body", "incident", "components", 1].
func fieldLoc(namespace string) []any {
	loc := []any{"body"}
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for _, part := range parts {
		name := part
		var index string
		if i := strings.Index(part, "["); i >= 0 && strings.HasSuffix(part, "]") {
			name = part[:i]
			index = part[i+1 : len(part)-1]
		}
		if name != "" {
			loc = append(loc, name)
		}
		if index != "" {
			if n, err := strconv.Atoi(index); err == nil {
				loc = append(loc, n)
			} else {
				loc = append(loc, index)
			}
		}
	}
	return loc
}

func describe(fe validator.FieldError) (string, string) {
	switch fe.Tag() {
	case "required":
		if strings.HasSuffix(fe.Namespace(), "]") {
			return "String should have at least 1 character", "string_too_short"
		}
		return "Field required", "missing"
	case "max":
		return fmt.Sprintf("String should have at most %s characters", fe.Param()), "string_too_long"
	case "http_url":
		return "Input should be a valid URL", "url_parsing"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag()), fe.Tag()
	}
}

func quotedChoices(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		quoted = append(quoted, "'"+strings.TrimSpace(item)+"'")
	}
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}
