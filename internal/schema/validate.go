package schema

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Mode selects which required-field rules apply.
type Mode int

const (
	// ModeCreate requires every required field to be present.
	ModeCreate Mode = iota
	// ModeUpdate validates a patch: absent fields keep their stored value,
	// but an explicit null on a required field is rejected.
	ModeUpdate
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a (dotted) field path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the error the way callers see it in API responses.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "The following field is invalid: " + e.Errors[0].Field
	}
	return "The following fields are invalid: " + strings.Join(e.Fields(), ", ")
}

// Fields returns the distinct invalid field paths in order of appearance.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]struct{}, len(e.Errors))
	var out []string
	for _, fe := range e.Errors {
		if _, ok := seen[fe.Field]; ok {
			continue
		}
		seen[fe.Field] = struct{}{}
		out = append(out, fe.Field)
	}
	return out
}

// Detail joins every field message, for logs and CLI output.
func (e *ValidationError) Detail() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks doc against fields. It rejects unknown keys, checks value
// types, numeric bounds and select options, and enforces required fields
// according to mode. Nested group and array values are full replacements and
// are always validated with create rules. Returns a *ValidationError on
// failure, nil on success.
func Validate(fields []Field, doc map[string]any, mode Mode) error {
	var ve ValidationError
	validateObject(&ve, "", fields, doc, mode, false)
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func validateObject(ve *ValidationError, prefix string, fields []Field, doc map[string]any, mode Mode, arrayRow bool) {
	known := make(map[string]*Field, len(fields))
	for i := range fields {
		if fields[i].Hidden {
			continue
		}
		known[fields[i].Name] = &fields[i]
	}

	var unknown []string
	for key := range doc {
		if _, ok := known[key]; ok {
			continue
		}
		// Array rows carry a stable row ID.
		if arrayRow && key == "id" {
			continue
		}
		unknown = append(unknown, key)
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		ve.Add(prefix+key, "unknown field")
	}

	for i := range fields {
		f := &fields[i]
		if f.Hidden {
			continue
		}
		path := prefix + f.Name
		val, present := doc[f.Name]
		if !present {
			if f.Required && mode == ModeCreate {
				ve.Add(path, "is required")
			}
			continue
		}
		if val == nil {
			if f.Required {
				ve.Add(path, "is required")
			}
			continue
		}
		validateValue(ve, path, f, val)
	}
}

func validateValue(ve *ValidationError, path string, f *Field, val any) {
	switch {
	case f.Kind.textual():
		s, ok := val.(string)
		if !ok {
			ve.Add(path, "must be a string")
			return
		}
		if f.Required && strings.TrimSpace(s) == "" {
			ve.Add(path, "is required")
			return
		}
		if f.Kind == KindEmail && !looksLikeEmail(s) {
			ve.Add(path, "must be a valid email address")
		}
	case f.Kind == KindNumber:
		n, ok := val.(float64)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			ve.Add(path, "must be a number")
			return
		}
		if f.Min != nil && n < *f.Min {
			ve.Add(path, fmt.Sprintf("must be greater than or equal to %s", formatNumber(*f.Min)))
		}
		if f.Max != nil && n > *f.Max {
			ve.Add(path, fmt.Sprintf("must be less than or equal to %s", formatNumber(*f.Max)))
		}
	case f.Kind == KindCheckbox:
		if _, ok := val.(bool); !ok {
			ve.Add(path, "must be a boolean")
		}
	case f.Kind == KindSelect:
		s, ok := val.(string)
		if !ok {
			ve.Add(path, "must be a string")
			return
		}
		if !f.hasOption(s) {
			ve.Add(path, fmt.Sprintf("must be one of %v", f.optionValues()))
		}
	case f.Kind == KindRelationship || f.Kind == KindUpload:
		s, ok := val.(string)
		if !ok || s == "" {
			ve.Add(path, "must be a document ID in "+f.RelationTo)
		}
	case f.Kind == KindGroup:
		m, ok := val.(map[string]any)
		if !ok {
			ve.Add(path, "must be an object")
			return
		}
		validateObject(ve, path+".", f.Fields, m, ModeCreate, false)
	case f.Kind == KindArray:
		rows, ok := val.([]any)
		if !ok {
			ve.Add(path, "must be an array")
			return
		}
		for i, row := range rows {
			rowPath := path + "." + strconv.Itoa(i)
			m, ok := row.(map[string]any)
			if !ok {
				ve.Add(rowPath, "must be an object")
				continue
			}
			validateObject(ve, rowPath+".", f.Fields, m, ModeCreate, true)
		}
	case f.Kind == KindRichText || f.Kind == KindJSON:
		// Opaque JSON; any value is accepted.
	default:
		ve.Add(path, fmt.Sprintf("unknown field type %q", f.Kind))
	}
}

func looksLikeEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\r\n")
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
