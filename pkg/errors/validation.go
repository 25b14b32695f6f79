package errors

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes a single failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// FromValidation converts validator output into a VALIDATION_ERROR carrying per-field details.
func FromValidation(err error, message string) *Error {
	if err == nil {
		return nil
	}
	if message == "" {
		message = ErrValidation.Message
	}
	appErr := Wrap(err, ErrValidation.Kind, ErrValidation.Code, message)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErr
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: lowerFirst(fe.Field()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	appErr.Details = map[string]interface{}{"fields": fields}
	return appErr
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
