package core

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	if len(err.Fields) > 0 {
		msgs := make([]string, 0, len(err.Fields))
		for _, fe := range err.Fields {
			msgs = append(msgs, fe.Field+": "+fe.Error)
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func (err ValidationError) Unwrap() error { return err.Err }

// AsValidationError converts validator.ValidationErrors into a *ValidationError whose fields are
// named after their JSON path, minus the root struct (e.g. `enfants[0].niveau`).
// Any other error is returned unchanged.
func AsValidationError(err error) error {
	vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		ns := vErr.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		flds = append(flds, FieldError{Field: ns, Error: vErr.Translate(Translator)})
	}
	return NewValidationError(nil, flds...)
}
