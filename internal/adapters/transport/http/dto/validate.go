package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	"github.com/go-playground/validator/v10"
)

const minPasswordLen = 8

// NewValidator returns a validator with the project rules registered and
// field paths reported by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		return model.Gender(fl.Field().String()).Valid()
	})
	return v
}

// IsStrongPassword requires at least 8 characters with an upper and a lower
// case letter, a digit and a symbol.
func IsStrongPassword(pwd string) bool {
	if utf8.RuneCountInString(pwd) < minPasswordLen {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range pwd {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// Validate runs v over s and converts rule failures into a
// *errors.ValidationError.
func Validate(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return customErrors.NewInvalidArgument(err.Error())
	}
	out := &customErrors.ValidationError{Fields: make([]customErrors.FieldError, 0, len(vErrs))}
	for _, fe := range vErrs {
		out.Fields = append(out.Fields, customErrors.FieldError{
			Path:    fe.Field(),
			Message: describe(fe),
		})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s should not be empty", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be an email", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a URL address", fe.Field())
	case "strongpwd":
		return fmt.Sprintf("%s is not strong enough", fe.Field())
	case "gender":
		return fmt.Sprintf("%s must be one of the following values: male, female, other", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be less than %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must not be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
