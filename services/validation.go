package services

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

var mobilePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("mobile", validateMobile); err != nil {
		panic(err)
	}
	return v
}

// validateMobile accepts international and local phone numbers written with
// optional spaces, dashes or parentheses.
func validateMobile(fl validator.FieldLevel) bool {
	phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(fl.Field().String())
	return mobilePattern.MatchString(phone)
}

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
