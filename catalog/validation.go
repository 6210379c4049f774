package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	ruleISBN10Shape  = "isbn10shape"
	ruleISBN13Shape  = "isbn13shape"
	ruleBookSetOrder = "booksetorder"
	ruleRequired     = "required"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	_ = v.RegisterValidation(ruleISBN10Shape, func(fl validator.FieldLevel) bool {
		return IsISBN10Shaped(fl.Field().String())
	})

	_ = v.RegisterValidation(ruleISBN13Shape, func(fl validator.FieldLevel) bool {
		return IsISBN13Shaped(fl.Field().String())
	})

	v.RegisterStructValidation(validateBookStruct, BookInput{})

	return v
}

// validateBookStruct holds the rules spanning more than one field.
func validateBookStruct(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(BookInput)
	if !ok {
		return
	}

	if in.LibraryID == uuid.Nil {
		sl.ReportError(in.LibraryID, "libraryId", "LibraryID", ruleRequired, "")
	}

	// bookSetOrder is 0 outside a set and positive inside one
	if in.BookSet == "" && in.BookSetOrder != 0 || in.BookSet != "" && in.BookSetOrder <= 0 {
		sl.ReportError(in.BookSetOrder, "bookSetOrder", "BookSetOrder", ruleBookSetOrder, "")
	}
}

// ValidateLibrary checks a normalised LibraryInput.
func ValidateLibrary(in LibraryInput) error {
	return toValidationError(validate.Struct(in))
}

// ValidateBook checks a normalised BookInput.
func ValidateBook(in BookInput) error {
	return toValidationError(validate.Struct(in))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return newValidationError("", "", err.Error())
	}

	first := fieldErrors[0]

	return newValidationError(first.Field(), first.Tag(), describe(first))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case ruleRequired:
		return fmt.Sprintf("%q is required", field)
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, strings.Join(strings.Fields(fe.Param()), ", "))
	case "base64":
		return fmt.Sprintf("%q must be a valid base64 string", field)
	case ruleISBN10Shape:
		return fmt.Sprintf("%q must be an ISBN-10", field)
	case ruleISBN13Shape:
		return fmt.Sprintf("%q must be an ISBN-13", field)
	case ruleBookSetOrder:
		return fmt.Sprintf("%q must be 0 without a book set and positive within one", field)
	default:
		return fmt.Sprintf("%q failed on the %q rule", field, fe.Tag())
	}
}
