// Package validation wraps go-playground/validator and turns its errors into
// per-field messages keyed by JSON name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/leaddesk/leaddesk/internal/phone"
	"github.com/leaddesk/leaddesk/internal/shared"
)

// Validator validates request DTOs.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the custom tags used by request DTOs.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		return ok && phone.IsMobile(value)
	})

	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := shared.ParseDate(value)
		return err == nil
	})

	_ = v.RegisterValidation("designation", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, known := shared.ParseDesignation(value)
		return known
	})

	return &Validator{v: v}
}

// Struct validates s and returns shared.FieldErrors for tag failures.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := shared.FieldErrors{}
	for _, fe := range ve {
		fields.Add(fe.Field(), message(fe))
	}
	return fields.Err()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "mobile":
		return fmt.Sprintf("Mobile number must be exactly %d digits", phone.MobileLength)
	case "email":
		return "Enter a valid email address"
	case "date":
		return "Use the YYYY-MM-DD format"
	case "gt":
		return "Select a value"
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "designation":
		return "Unknown designation"
	default:
		return "Invalid value"
	}
}
