// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Validation limits for classification tags and metadata.
const (
	MaxTagLength           = 100
	MaxTagCount            = 32
	MaxMetadataKeyLength   = 64
	MaxMetadataValueLength = 256
	MaxMetadataKeys        = 32
)

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateTag checks that a classification tag is valid.
// Tags must be non-empty, valid UTF-8, free of whitespace and control
// characters, and within the length limit.
func ValidateTag(tag string) error {
	if tag == "" {
		return &ValidationError{Field: "tag", Message: "cannot be empty"}
	}
	if !utf8.ValidString(tag) {
		return &ValidationError{Field: "tag", Message: "must be valid UTF-8"}
	}
	if len(tag) > MaxTagLength {
		return &ValidationError{Field: "tag", Message: fmt.Sprintf("exceeds maximum length of %d", MaxTagLength)}
	}
	for _, r := range tag {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return &ValidationError{Field: "tag", Message: "cannot contain whitespace or control characters"}
		}
	}
	return nil
}

// ValidateMetadataKey checks that a metadata key is an identifier.
func ValidateMetadataKey(key string) error {
	if key == "" {
		return &ValidationError{Field: "metadata", Message: "key cannot be empty"}
	}
	if len(key) > MaxMetadataKeyLength {
		return &ValidationError{Field: "metadata", Message: fmt.Sprintf("key exceeds maximum length of %d", MaxMetadataKeyLength)}
	}
	if !isValidIdentifier(key) {
		return &ValidationError{Field: "metadata", Message: fmt.Sprintf("key %q is not a valid identifier", key)}
	}
	return nil
}

// ValidateMetadataValue checks that a metadata value is printable text.
func ValidateMetadataValue(value string) error {
	if !utf8.ValidString(value) {
		return &ValidationError{Field: "metadata", Message: "value must be valid UTF-8"}
	}
	if len(value) > MaxMetadataValueLength {
		return &ValidationError{Field: "metadata", Message: fmt.Sprintf("value exceeds maximum length of %d", MaxMetadataValueLength)}
	}
	if hasControlChars(value) {
		return &ValidationError{Field: "metadata", Message: "value cannot contain control characters"}
	}
	return nil
}

// hasControlChars returns true if the string contains control characters.
func hasControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// isValidIdentifier returns true if s is a valid identifier (alphanumeric + underscore, starting with letter).
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
		} else {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				return false
			}
		}
	}
	return true
}
