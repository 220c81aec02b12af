package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrMissingPlus indicates the number is not written in international form
	ErrMissingPlus = errors.New("phone number must start with + and a country code")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits after the +")

	// ErrInvalidLength indicates the digit count is outside the E.164 range
	ErrInvalidLength = errors.New("phone number must have between 8 and 15 digits")
)

// E.164 allows at most 15 digits; the country code never starts with 0
var e164Regex = regexp.MustCompile(`^\+[1-9]\d+$`)

const (
	minDigits = 8
	maxDigits = 15
)

// PhoneValidator handles phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// ValidateInternational validates an international phone number.
// Accepts formats like +94771234567, +94 77 123 4567 or +1-415-555-0100.
// Returns the sanitized number (+ followed by digits) and an error if invalid.
func (v *PhoneValidator) ValidateInternational(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !strings.HasPrefix(sanitized, "+") {
		return "", ErrMissingPlus
	}

	digits := sanitized[1:]
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return "", ErrInvalidFormat
	}

	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", ErrInvalidLength
	}

	if !e164Regex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	return sanitized, nil
}

// Sanitize removes common separators from a phone number, keeping a leading +
func (v *PhoneValidator) Sanitize(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.ReplaceAll(phone, "(", "")
	phone = strings.ReplaceAll(phone, ")", "")
	phone = strings.ReplaceAll(phone, ".", "")
	return phone
}

// ValidateMultiple validates multiple phone numbers at once
// Returns a map of phone number to error (nil if valid)
func (v *PhoneValidator) ValidateMultiple(phones []string) map[string]error {
	results := make(map[string]error, len(phones))
	for _, phone := range phones {
		_, err := v.ValidateInternational(phone)
		results[phone] = err
	}
	return results
}
