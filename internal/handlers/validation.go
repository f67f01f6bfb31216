package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fieldErr := fieldErrs[0]
		return fmt.Sprintf("%s failed validation on %s", fieldErr.Field(), fieldErr.Tag())
	}
	return "Invalid request"
}
