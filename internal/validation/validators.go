package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("friction", validateFriction); err != nil {
		panic(fmt.Sprintf("failed to register friction validator: %v", err))
	}
	if err := Validate.RegisterValidation("energy", validateEnergy); err != nil {
		panic(fmt.Sprintf("failed to register energy validator: %v", err))
	}
}

// Error is a client input error. It is surfaced as a 400 and never retried.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Errorf builds a validation error for field
func Errorf(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is or wraps a validation error
func IsValidationError(err error) bool {
	var vErr *Error
	if errors.As(err, &vErr) {
		return true
	}
	var fieldErrs validator.ValidationErrors
	return errors.As(err, &fieldErrs)
}

// Struct validates s with the shared validator and converts failures to *Error
func Struct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &Error{Field: toSnake(fe.Field()), Message: describe(fe)}
	}
	return &Error{Message: err.Error()}
}

// validateFriction accepts an empty value or a known friction label, case-insensitively
func validateFriction(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return true
	}
	switch strings.ToLower(value) {
	case "low", "medium", "high":
		return true
	default:
		return false
	}
}

// validateEnergy accepts zero (unset) or a rating within range
func validateEnergy(fl validator.FieldLevel) bool {
	v := fl.Field().Int()
	return v == 0 || (v >= models.MinEnergy && v <= models.MaxEnergy)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "friction":
		return "must be one of Low, Medium or High"
	case "energy":
		return fmt.Sprintf("must be between %d and %d", models.MinEnergy, models.MaxEnergy)
	default:
		return "is invalid"
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateEmail checks that s is a bare address such as "name@example.com"
func ValidateEmail(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return Errorf("email", "must be a valid email address")
	}
	return nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// SanitizeValues trims core values and drops empty entries and duplicates
func SanitizeValues(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = SanitizeText(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
