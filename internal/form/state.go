package form

import (
	"errors"

	"beanhealth/internal/domain"
)

// State is the view the controller currently presents.
type State int

const (
	StateEditing State = iota
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Field names a draft field. Values match the JSON member names.
type Field string

const (
	FieldName       Field = "name"
	FieldEmail      Field = "email"
	FieldLookingFor Field = "lookingFor"
)

// Fields lists the draft fields in display order.
var Fields = []Field{FieldName, FieldEmail, FieldLookingFor}

var (
	ErrNotEditing   = errors.New("form: draft can only be edited in the editing state")
	ErrUnknownField = errors.New("form: unknown field")
)

// ParseField maps a field name to a Field.
func ParseField(name string) (Field, error) {
	switch Field(name) {
	case FieldName, FieldEmail, FieldLookingFor:
		return Field(name), nil
	default:
		return "", ErrUnknownField
	}
}

func setField(d *domain.DemoRequestDraft, f Field, value string) error {
	switch f {
	case FieldName:
		d.Name = value
	case FieldEmail:
		d.Email = value
	case FieldLookingFor:
		d.LookingFor = value
	default:
		return ErrUnknownField
	}
	return nil
}

// FieldValue returns the value of f in d.
func FieldValue(d domain.DemoRequestDraft, f Field) string {
	switch f {
	case FieldName:
		return d.Name
	case FieldEmail:
		return d.Email
	case FieldLookingFor:
		return d.LookingFor
	default:
		return ""
	}
}

// MissingFields returns the fields of d that are empty or whitespace only.
func MissingFields(d domain.DemoRequestDraft) []Field {
	n := d.Normalized()
	var missing []Field
	for _, f := range Fields {
		if FieldValue(n, f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}
