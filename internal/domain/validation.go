package domain

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	categoryRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,39}$`)
)

// Validator returns the shared validator with the inventory tags registered
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("category", validateCategory)
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

func validateCategory(fl validator.FieldLevel) bool {
	return categoryRegex.MatchString(fl.Field().String())
}

// ValidateDraft checks a draft against the item invariants
func ValidateDraft(d Draft) error {
	return validateStruct(d)
}

// ValidatePatch checks a patch; an empty patch is rejected
func ValidatePatch(p Patch) error {
	if p.IsEmpty() {
		return NewValidationError(map[string]string{"patch": "must change at least one field"}, nil)
	}
	return validateStruct(p)
}

// ValidateItem checks a stored item, including its id
func ValidateItem(i InventoryItem) error {
	return validateStruct(i)
}

func validateStruct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	fields := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fe := range validationErrors {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return NewValidationError(fields, err)
}
