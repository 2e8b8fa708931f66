// Package validation validates request and service inputs with validator/v10
// and reports failures as domain validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	domainerrors "github.com/shelfkeeper/shelfkeeper/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
//
// Besides the built-in tags it understands:
//
//	collection_status  a domain.CollectionStatus (empty allowed)
//	ownership          a domain.OwnershipStatus
//	progress           a domain.ProgressStatus
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for collection and item inputs.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "":
			return fld.Name
		case "-":
			return ""
		}
		return name
	})

	mustRegister(v, "collection_status", func(fl validator.FieldLevel) bool {
		return domain.CollectionStatus(fl.Field().String()).Valid()
	})
	mustRegister(v, "ownership", func(fl validator.FieldLevel) bool {
		return domain.OwnershipStatus(fl.Field().String()).Valid()
	})
	mustRegister(v, "progress", func(fl validator.FieldLevel) bool {
		return domain.ProgressStatus(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Validate validates a struct and returns a domain validation error whose
// details map each failing field to a message.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Var validates a single value against a tag expression.
func (v *Validator) Var(field string, value any, tag string) error {
	err := v.v.Var(value, tag)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}
	msg := friendlyMessage(validationErrs[0])
	return domainerrors.ValidationWithDetails(field+" "+msg, map[string]string{field: msg})
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	names := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		if _, seen := fieldErrors[e.Field()]; !seen {
			names = append(names, e.Field())
		}
		fieldErrors[e.Field()] = friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed: "+strings.Join(names, ", "), fieldErrors)
}

//nolint:gocyclo // Switch statement covering validation tags is intentionally exhaustive.
func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must not have more than %s entries", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url", "http_url":
		return "must be a valid URL"
	case "isbn":
		return "must be a valid ISBN-10 or ISBN-13"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "collection_status":
		return "must be one of: ongoing completed hiatus cancelled"
	case "ownership":
		return "must be one of: owned wishlist preordered for_sale"
	case "progress":
		return "must be one of: unread reading read dropped"
	default:
		return "is invalid"
	}
}
