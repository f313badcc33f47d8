// Package validation turns request payloads into typed inputs or a list of
// human-readable messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error carries every failed rule of one payload.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if label := field.Tag.Get("label"); label != "" {
			return label
		}
		return field.Name
	})
	return v
}

// Validate checks s against its validate tags. It returns nil or *Error.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{Messages: []string{err.Error()}}
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, message(fe))
	}
	return &Error{Messages: messages}
}

// New builds an *Error from ad hoc messages, for checks that tags cannot express.
func New(messages ...string) *Error {
	return &Error{Messages: messages}
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "min":
		return fmt.Sprintf("%s must be at least %s %s long", label, fe.Param(), characters(fe.Param()))
	case "max":
		return fmt.Sprintf("%s must be at most %s %s long", label, fe.Param(), characters(fe.Param()))
	case "email":
		return "Invalid email"
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid id", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

func characters(n string) string {
	if n == "1" {
		return "character"
	}
	return "characters"
}
