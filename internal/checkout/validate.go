package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"

	"github.com/ariefcatur/go-storefront/internal/backend"
)

const DefaultCountry = "India"

// Address is the shipping form. Only the five tagged fields are checked;
// email and country are carried through as given.
type Address struct {
	FullName   string `json:"fullName" validate:"alphaspace"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone" validate:"phone10"`
	Address    string `json:"address" validate:"min16=5"`
	City       string `json:"city" validate:"alphaspace"`
	PostalCode string `json:"postalCode" validate:"pin6"`
	Country    string `json:"country,omitempty"`
}

func (a Address) shipping() backend.ShippingAddress {
	country := a.Country
	if country == "" {
		country = DefaultCountry
	}
	return backend.ShippingAddress{
		FullName:   a.FullName,
		Email:      a.Email,
		Phone:      a.Phone,
		Address:    a.Address,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    country,
	}
}

var (
	reAlphaSpace = regexp.MustCompile(`^[A-Za-z ]+$`)
	rePhone      = regexp.MustCompile(`^\d{10}$`)
	rePIN        = regexp.MustCompile(`^\d{6}$`)
)

var messages = map[string]string{
	"fullName":   "Full name should contain only alphabets",
	"phone":      "Phone number must be exactly 10 digits",
	"address":    "Address must be at least 5 characters",
	"city":       "City should contain only alphabets",
	"postalCode": "Postal code must be exactly 6 digits",
}

// fieldTags mirrors the struct tags for single-field checks.
var fieldTags = map[string]string{
	"fullName":   "alphaspace",
	"phone":      "phone10",
	"address":    "min16=5",
	"city":       "alphaspace",
	"postalCode": "pin6",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "alphaspace", reAlphaSpace)
	mustRegister(v, "phone10", rePhone)
	mustRegister(v, "pin6", rePIN)
	if err := v.RegisterValidation("min16", minUTF16); err != nil {
		panic(err)
	}
	return v
}

// minUTF16 counts UTF-16 code units the way the browser form does, so an
// emoji counts twice.
func minUTF16(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(utf16.Encode([]rune(fl.Field().String()))) >= n
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

// ValidationErrors maps a form field to its message.
type ValidationErrors map[string]string

func (ve ValidationErrors) Error() string {
	fields := make([]string, 0, len(ve))
	for f := range ve {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+ve[f])
	}
	return "invalid address: " + strings.Join(parts, "; ")
}

// ValidateField checks one form field as the user edits it. It returns ""
// when the value is acceptable or the field has no rule.
func ValidateField(field, value string) string {
	tag, ok := fieldTags[field]
	if !ok {
		return ""
	}
	if err := validate.Var(value, tag); err != nil {
		return messages[field]
	}
	return ""
}

// Validate checks every rule at once and returns ValidationErrors, or nil.
func Validate(a Address) error {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var fe validator.ValidationErrors
	if !errors.As(err, &fe) {
		return err
	}
	out := ValidationErrors{}
	for _, e := range fe {
		out[e.Field()] = messages[e.Field()]
	}
	return out
}
