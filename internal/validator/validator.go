package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// seatLabelRgx matches the derived seat-name space: a row letter followed by a
// seat number, e.g. A1, B5, C10.
var seatLabelRgx = regexp.MustCompile(`^[A-Z][1-9][0-9]?$`)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seat_label", validateSeatLabel)

	return validator
}

func validateSeatLabel(fl validator.FieldLevel) bool {
	return seatLabelRgx.MatchString(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s element(s)", err.Param())
	case "uuid4":
		return "must be a valid UUID"
	case "seat_label":
		return "must be a seat name like A1 or B5"
	default:
		return "is invalid"
	}
}
