package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldValidationError represents a validation error for a specific field
type FieldValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationErrors represents multiple field validation errors
type FieldValidationErrors []FieldValidationError

// Error implements the error interface
func (e FieldValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	skuRegex   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)
)

// PhoneRule carries the configured country prefix and exact length a client
// phone must match, e.g. +380 / 13 for Ukrainian numbers.
type PhoneRule struct {
	Prefix string
	Length int
}

// Validate checks a phone number against the rule
func (r PhoneRule) Validate(phone string) error {
	if !strings.HasPrefix(phone, r.Prefix) {
		return ValidationErr(fmt.Sprintf("phone must start with %s", r.Prefix), nil)
	}
	if len(phone) != r.Length {
		return ValidationErr(fmt.Sprintf("phone must be %d characters long", r.Length), nil)
	}
	for _, ch := range phone[len(r.Prefix):] {
		if ch < '0' || ch > '9' {
			return ValidationErr("phone must contain only digits after the country prefix", nil)
		}
	}
	return nil
}

// ValidateEmail checks if the email has a valid format
func ValidateEmail(email string) (bool, string) {
	if email == "" {
		return false, "Email is required"
	}
	if !emailRegex.MatchString(email) {
		return false, "Invalid email format"
	}
	return true, ""
}

// ValidateSKU checks if a product SKU has a valid shape
func ValidateSKU(sku string) (bool, string) {
	if sku == "" {
		return false, "SKU is required"
	}
	if !skuRegex.MatchString(sku) {
		return false, "SKU may contain only letters, digits, '-' and '_' (max 100 chars)"
	}
	return true, ""
}
