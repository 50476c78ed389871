package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// PasswordTag is the struct tag enforcing the password policy.
const PasswordTag = "password_policy"

const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// New returns a validator with the custom tags registered and JSON field names in errors.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation(PasswordTag, func(fl validator.FieldLevel) bool {
		return PasswordViolation(fl.Field().String()) == ""
	})
	return v
}

// PasswordViolation returns the first password rule pw fails, or "" when it passes.
func PasswordViolation(pw string) string {
	if len(pw) < 8 {
		return "Password must be at least 8 characters long."
	}
	var digit, upper, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	switch {
	case !digit:
		return "Password must contain at least one number."
	case !upper:
		return "Password must contain at least one uppercase letter."
	case !symbol:
		return "Password must contain at least one special character."
	}
	return ""
}

// Message renders validator errors as a single human readable sentence.
// Password policy failures carry the rule that was not met.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fieldMessage(fe))
	}
	return strings.Join(parts, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case PasswordTag:
		return PasswordViolation(fmt.Sprint(fe.Value()))
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
