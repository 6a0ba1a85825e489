package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	mobileRegex    = regexp.MustCompile(`^\d{1,13}$`)
	emailRegex     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	pincodeRegex   = regexp.MustCompile(`^\d{6}$`)
	hotelCodeRegex = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// IsValidMobile reports whether s is 1 to 13 digits
func IsValidMobile(s string) bool {
	return mobileRegex.MatchString(s)
}

// IsValidEmail reports whether s looks like local@domain.tld
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// IsValidPincode reports whether s is exactly 6 digits
func IsValidPincode(s string) bool {
	return pincodeRegex.MatchString(s)
}

// IsValidHotelCode reports whether s uses only lowercase letters, digits and hyphens
func IsValidHotelCode(s string) bool {
	return hotelCodeRegex.MatchString(s)
}

// New returns a validator with the guest form tags registered:
// notblank, mobile, guestemail, pincode and hotelcode. Field names in
// errors come from the `form` struct tag.
func New() *validator.Validate {
	v := validator.New()
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

// Register adds the guest form tags to an existing validator, such as the
// one behind gin's binding engine.
func Register(v *validator.Validate) error {
	tags := map[string]validator.Func{
		"notblank":   stringRule(func(s string) bool { return strings.TrimSpace(s) != "" }),
		"mobile":     stringRule(IsValidMobile),
		"guestemail": stringRule(IsValidEmail),
		"pincode":    stringRule(IsValidPincode),
		"hotelcode":  stringRule(IsValidHotelCode),
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return nil
}

func stringRule(ok func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return ok(fl.Field().String())
	}
}

// FieldMessages maps a field name to the message for each failed tag. The
// empty tag key is used when no tag-specific message exists.
type FieldMessages map[string]map[string]string

func (m FieldMessages) lookup(fe validator.FieldError) string {
	byTag := m[fe.Field()]
	if msg, ok := byTag[fe.Tag()]; ok {
		return msg
	}
	if msg, ok := byTag[""]; ok {
		return msg
	}
	return fe.Field() + " is invalid"
}

// Collect turns a validation error into a field to message map. Errors that
// are not validation errors yield nil.
func Collect(err error, messages FieldMessages) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = messages.lookup(fe)
		}
	}
	return out
}

// CollectOrdered is Collect as a list in struct field order
func CollectOrdered(err error, messages FieldMessages) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	var out []string
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		out = append(out, messages.lookup(fe))
	}
	return out
}
