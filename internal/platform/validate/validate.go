// Package validate adapts go-playground/validator to echo's Validator hook so
// handlers can call c.Validate on bound request structs.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/medexam/medexam/internal/platform/apierr"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their wire names, not the Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (val *Validator) Validate(i interface{}) error {
	err := val.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.Validation("invalid request body")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apierr.Validation("%s", strings.Join(msgs, "; "))
}

// fieldMessage renders one constraint violation in the plain form the API
// envelope promises, without leaking validator internals.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "oneof":
		return fe.Field() + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "uuid":
		return fe.Field() + " must be a valid uuid"
	default:
		return fe.Field() + " is invalid"
	}
}
