// Package forms validates console form submissions before anything is sent
// to the catalog service.
package forms

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"catalog-admin/internal/catalog"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// ValidationError is a local rejection of a form; Field names the offending
// input and Message is what the user sees.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		_, err := catalog.ParsePrice(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("stock", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n >= 0
	})
	_ = v.RegisterValidation("ref", func(fl validator.FieldLevel) bool {
		id, err := strconv.ParseInt(fl.Field().String(), 10, 64)
		return err == nil && id > 0
	})
	return v
}

// check runs the struct validator and converts the first failing field into
// a ValidationError using messages.
func check(form any, messages map[string]*ValidationError) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	first := fieldErrs[0]
	if msg, ok := messages[first.Field()]; ok {
		return msg
	}
	return &ValidationError{
		Field:   strings.ToLower(first.Field()),
		Message: fmt.Sprintf("%s is invalid", strings.ToLower(first.Field())),
	}
}
