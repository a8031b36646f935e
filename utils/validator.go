package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"emailfinder/models"
)

var validate = validator.New()

// ValidateStruct checks validate tags and reports the first failing field
// as an InputValidationError.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &models.InputValidationError{Message: err.Error()}
	}

	var messages []string
	for _, fe := range verrs {
		field := fieldName(fe)
		param := fe.Param()

		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "min":
			messages = append(messages, field+" must have at least "+param+" item(s)")
		case "max":
			messages = append(messages, field+" must be at most "+param)
		case "email":
			messages = append(messages, field+" must be a valid email")
		case "hostname_rfc1123", "fqdn":
			messages = append(messages, field+" must be a valid domain")
		default:
			messages = append(messages, field+" is invalid")
		}
	}
	return &models.InputValidationError{
		Field:   fieldName(verrs[0]),
		Message: strings.Join(messages, ", "),
	}
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return ""
	}
	return strings.ToLower(name[:1]) + name[1:]
}
