package workflow

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"naktender/pkg/types"

	"github.com/go-playground/validator/v10"
)

var (
	mobileReg = regexp.MustCompile(`^09[0-9]{9}$`)
	shebaReg  = regexp.MustCompile(`^(IR)?[0-9]{24}$`)
	digitsReg = regexp.MustCompile(`^[0-9]{10}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobileReg.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("sheba", func(fl validator.FieldLevel) bool {
		return shebaReg.MatchString(strings.ToUpper(fl.Field().String()))
	})
	_ = v.RegisterValidation("nationalid", func(fl validator.FieldLevel) bool {
		return ValidNationalID(fl.Field().String())
	})

	v.RegisterStructValidation(guaranteeDates, GuaranteeRecord{})

	return v
}

// ValidNationalID checks the ten digit personal code and its check digit.
func ValidNationalID(code string) bool {
	if !digitsReg.MatchString(code) {
		return false
	}

	if strings.Count(code, code[:1]) == len(code) {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(code[i]-'0') * (10 - i)
	}
	rem := sum % 11
	check := int(code[9] - '0')

	if rem < 2 {
		return check == rem
	}
	return check == 11-rem
}

// ValidateStruct runs the tag rules of v and reports failures keyed by
// their JSON path.
func ValidateStruct(msg string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := types.NewValidationError(msg)
	for _, fe := range verrs {
		out.Add(fieldPath(fe.Namespace()), fieldMessage(fe))
	}

	return out
}

func fieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return path
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "mobile":
		return "must be a mobile number like 09123456789"
	case "nationalid":
		return "must be a valid 10 digit national code"
	case "sheba":
		return "must be a 24 digit SHEBA number"
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must contain digits only"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date formatted as YYYY-MM-DD"
	case "after_issue":
		return "must be after the issue date"
	}
	return "is invalid"
}
