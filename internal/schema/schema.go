// Package schema holds the create-message rules shared by the HTTP API, the
// broker ingest path and the client form. Changing a rule here changes it on
// every side at once.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"message-board/internal/model"
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Message string `json:"message"`
	Field   string `json:"field"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a create payload and returns nil when it is acceptable.
func Validate(m model.NewMessage) *ValidationError {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	return &ValidationError{
		Message: messageFor(fe),
		Field:   fieldPath(fe.Namespace()),
	}
}

// DecodeNewMessage reads a JSON create payload and validates it. An empty body
// is treated as an empty object; anything after the first JSON value is an
// error.
func DecodeNewMessage(r io.Reader) (model.NewMessage, *ValidationError) {
	var m model.NewMessage

	dec := json.NewDecoder(r)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			expected := "object"
			if typeErr.Field != "" {
				expected = typeErr.Type.String()
			}
			return m, &ValidationError{
				Message: fmt.Sprintf("Expected %s, received %s", expected, typeErr.Value),
				Field:   typeErr.Field,
			}
		}
		return m, &ValidationError{Message: "Invalid JSON body"}
	} else if err == nil && !errors.Is(dec.Decode(&struct{}{}), io.EOF) {
		// one JSON value per body
		return model.NewMessage{}, &ValidationError{Message: "Invalid JSON body"}
	}

	if verr := Validate(m); verr != nil {
		return m, verr
	}
	return m, nil
}

// fieldPath drops the root struct name: "NewMessage.content" -> "content".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	default:
		return fmt.Sprintf("Invalid value (%s)", fe.Tag())
	}
}
