package validation

import (
	"fmt"
	"strings"
)

// CustomMessage returns per-field override messages for validation tags
func CustomMessage(field string) map[string]string {
	var customValidationMessages = map[string]map[string]string{
		"Email": {
			"required": "email is required",
			"email":    "email is not a valid address",
		},
		"Password": {
			"required": "password is required",
			"min":      "password must be at least 8 characters",
			"password": "password must contain upper case, lower case and a digit",
		},
		"FirstName": {
			"required": "first name is required",
		},
		"LastName": {
			"required": "last name is required",
		},
		"RefreshToken": {
			"required": "refresh token is required",
		},
		"Token": {
			"required": "token is required",
		},
		"Role": {
			"required": "role is required",
		},
	}
	return customValidationMessages[field]
}

// DefaultMessage returns a generic message for a validation tag
func DefaultMessage(field, tag string) string {
	field = strings.ToLower(field)

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s is below the minimum length or value", field)
	case "max":
		return fmt.Sprintf("%s exceeds the maximum length or value", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s is not one of the allowed values", field)
	case "eqfield":
		return fmt.Sprintf("%s does not match", field)
	case "password":
		return fmt.Sprintf("%s does not meet strength requirements", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// MessageFor resolves the message for a field and tag, preferring the
// per-field override
func MessageFor(field, tag string) string {
	if custom := CustomMessage(field); custom != nil {
		if msg, ok := custom[tag]; ok {
			return msg
		}
	}
	return DefaultMessage(field, tag)
}
