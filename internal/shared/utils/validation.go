// Package utils validates input arriving over the window API.
package utils

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/windowctx/internal/shared/id"
)

// Size limits (in bytes)
const (
	MaxScriptSize  = 1 * 1024 * 1024 // 1MB - single evaluation
	MaxMessageSize = MaxScriptSize + 4*1024
)

// String length limits
const (
	MaxFilenameLength = 512
	MaxURLLength      = 2048
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil // Optional field, empty is OK
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	// Check for null bytes (security issue)
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateScript validates script text submitted for evaluation
func ValidateScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("script is required")
	}
	if len(script) > MaxScriptSize {
		return fmt.Errorf("script size %d bytes exceeds maximum %d bytes", len(script), MaxScriptSize)
	}
	return nil
}

// ValidateFilename validates an optional diagnostic filename
func ValidateFilename(filename string) error {
	return ValidateString(filename, "filename", 1, MaxFilenameLength, false)
}

// ValidateWindowID parses a window identifier from a request
func ValidateWindowID(s string) (id.WindowID, error) {
	wid, err := id.ParseWindowID(s)
	if err != nil {
		return "", fmt.Errorf("window_id: %w", err)
	}
	return wid, nil
}

// ValidateTarget validates a page address fetched on behalf of a remote
// caller. Only http and https are allowed.
func ValidateTarget(raw string) (*url.URL, error) {
	if err := ValidateString(raw, "url", 1, MaxURLLength, true); err != nil {
		return nil, err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("url is malformed: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url scheme %q not allowed", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url host is required")
	}
	return u, nil
}
