package validate

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"student-manager/common/apperr"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports fields by their JSON names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates s and turns the first failing field into a client message
// such as "Email Is Invalid".
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return ErrBadRequest
	}

	fe := fieldErrs[0]
	field := Humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperr.Validation(field + " Is Required")
	case "email":
		return apperr.Validation(field + " Is Invalid")
	case "oneof":
		return apperr.Validation(field + " Must Be One Of " + strings.Join(strings.Fields(fe.Param()), ", "))
	case "min", "gte":
		return apperr.Validation(field + " Must Be At Least " + fe.Param())
	case "max", "lte":
		return apperr.Validation(field + " Must Be At Most " + fe.Param())
	default:
		return apperr.Validation(field + " Is Invalid")
	}
}

// Humanize turns "dateOfBirth" into "Date Of Birth".
func Humanize(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
