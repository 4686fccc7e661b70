// Package validation checks incoming request models.
//
// Struct rules are declared with `validate` tags and enforced by
// go-playground/validator; failures are translated to English messages
// that name the field by its form/json key so the frontend can show them.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslation "github.com/go-playground/validator/v10/translations/en"
)

const (
	MinPasswordLength = 8

	ErrPasswordLength     = "Password must be at least 8 characters long."
	ErrPasswordComplexity = "Password must include at least one letter, one number, and one special character."
)

// Errors holds one translated message per failed field.
type Errors []string

func (e Errors) Error() string {
	return strings.Join(e, "; ")
}

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a validator with English translations and the "alpha3"
// country code rule registered.
func New() (*Validator, error) {
	validate := validator.New()

	enLocale := en.New()
	translator, found := ut.New(enLocale, enLocale).GetTranslator("en")
	if !found {
		return nil, fmt.Errorf("en translator was not found")
	}
	if err := enTranslation.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, fmt.Errorf("translator was not registered: %w", err)
	}

	if err := validate.RegisterValidation("alpha3", isAlpha3); err != nil {
		return nil, err
	}
	err := validate.RegisterTranslation("alpha3", translator,
		func(ut ut.Translator) error {
			return ut.Add("alpha3", "{0} must be a 3-letter country code", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("alpha3", fe.Field())
			return msg
		},
	)
	if err != nil {
		return nil, err
	}

	// Use the form or JSON field name in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	return &Validator{validate: validate, translator: translator}, nil
}

// Struct validates v and returns Errors when any rule fails.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	result := make(Errors, 0, len(validationErrs))
	for _, e := range validationErrs {
		result = append(result, e.Translate(v.translator))
	}
	return result
}

// CheckPassword enforces the signup password policy: minimum length and at
// least one letter, one digit and one special character.
func CheckPassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return errors.New(ErrPasswordLength)
	}

	var hasLetter, hasNumber, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsLetter(c):
			hasLetter = true
		case unicode.IsDigit(c):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}
	if !hasLetter || !hasNumber || !hasSpecial {
		return errors.New(ErrPasswordComplexity)
	}
	return nil
}

func isAlpha3(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
