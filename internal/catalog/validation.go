package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a JSON field to the rule it broke.
type FieldErrors map[string]string

// ValidationError carries per-field failures and matches ErrValidation.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "catalog: invalid input (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ProblemFields exposes the field failures in problem responses.
func (e *ValidationError) ProblemFields() map[string]any {
	return map[string]any{"errors": e.Fields}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func validateStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Field()] = rule
	}
	return &ValidationError{Fields: fields}
}

func invalidField(field, rule string) error {
	return &ValidationError{Fields: FieldErrors{field: rule}}
}
