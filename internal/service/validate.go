package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator reports field errors under their JSON names.
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

// validationError turns validator output into an InvalidInput error naming
// the first offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return InvalidInput(err.Error())
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return InvalidInput(fmt.Sprintf("%s is required", fe.Field()))
	case "email":
		return InvalidInput(fmt.Sprintf("%s must be a valid email", fe.Field()))
	case "min":
		return InvalidInput(fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
	case "max":
		return InvalidInput(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "gte":
		return InvalidInput(fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param()))
	}
	return InvalidInput(fmt.Sprintf("%s is invalid", fe.Field()))
}
