package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator builds the payload validator. Field names in messages use the
// JSON names clients send.
func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	err := validate.RegisterValidation("sortdirection", func(fl validator.FieldLevel) bool {
		dir := fl.Field().String()
		return strings.EqualFold(dir, "asc") || strings.EqualFold(dir, "desc")
	})
	if err != nil {
		panic(fmt.Sprintf("register sortdirection validation: %v", err))
	}
	return validate
}

// validationMessage flattens validator errors into one client-facing line.
func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		field := strings.TrimPrefix(e.Namespace(), "Request.")
		msg := fmt.Sprintf("invalid %s: rule '%s'", field, e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}
