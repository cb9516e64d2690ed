package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	rePersonName = regexp.MustCompile(`^[a-zA-Z\s'-]{2,50}$`)
	rePrintASCII = regexp.MustCompile(`^[\x20-\x7E\n\r]*$`)
	reNonDigit   = regexp.MustCompile(`\D`)
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// V10ValidationError is a field-to-message map returned when validation fails.
//
// Keys are the json names of the failing fields.
type V10ValidationError map[string]string

// Error implements the error interface.
func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// NewV10Validator constructs a V10Validator with English translations and custom rules.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := v10CustomValidation(validate, enTrans); err != nil {
		return nil, err
	}

	return &V10Validator{
		validate:   validate,
		translator: enTrans,
	}, nil
}

// Validate validates a struct and returns a V10ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	if err := v.validate.Struct(data); err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			return err
		}

		errV10 := make(V10ValidationError)
		for _, fe := range validateErrs {
			errV10[fe.Field()] = fe.Translate(v.translator)
		}

		return errV10
	}

	return nil
}

// NormalizePhone10 strips every non-digit and a single leading 1. ok is
// false unless exactly 10 digits remain.
func NormalizePhone10(s string) (digits string, ok bool) {
	digits = strings.TrimPrefix(reNonDigit.ReplaceAllString(s, ""), "1")
	return digits, len(digits) == 10
}

// IsPhone10 reports whether s normalizes to a 10 digit number.
func IsPhone10(s string) bool {
	_, ok := NormalizePhone10(s)
	return ok
}

// IsPersonName and IsPrintASCII back the message rules in the relay entity.
// They are not registered as tags; validator/v10 already owns "printascii".

// IsPersonName reports whether s, trimmed, is 2-50 letters, spaces, apostrophes or hyphens.
func IsPersonName(s string) bool {
	return rePersonName.MatchString(strings.TrimSpace(s))
}

// IsPrintASCII reports whether s has only printable ASCII, CR and LF.
func IsPrintASCII(s string) bool {
	return rePrintASCII.MatchString(s)
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	default:
		return name
	}
}

type customRule struct {
	tag     string
	message string
	check   func(string) bool
}

func v10CustomValidation(validate *validator.Validate, enTrans ut.Translator) error {
	rules := []customRule{
		{tag: "phone10", message: "{0} must be a valid 10-digit phone number", check: IsPhone10},
	}

	for _, rule := range rules {
		check := rule.check
		if err := validate.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && check(s)
		}); err != nil {
			return err
		}

		message := rule.message
		if err := validate.RegisterTranslation(rule.tag, enTrans,
			func(ut ut.Translator) error {
				return ut.Add(rule.tag, message, false)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, err := ut.T(fe.Tag(), fe.Field())
				if err != nil {
					slog.Warn("warning: error translating", "FieldError", fe, "error", err)
					return fe.Error()
				}

				return t
			},
		); err != nil {
			return err
		}
	}

	return nil
}
