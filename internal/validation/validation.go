package validation

import (
	"fmt"
	"regexp"
)

// maxSessionIDLength bounds ids used as file names
const maxSessionIDLength = 128

// safeIDRegex matches safe path components (alphanumeric, dash, underscore, dot)
var safeIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidateSessionID checks that a provider session id can name a file in
// the session store. Claude and Codex issue UUIDs; Gemini ids are opaque.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if len(id) > maxSessionIDLength {
		return fmt.Errorf("session ID too long: %d characters", len(id))
	}
	if id == "." || id == ".." {
		return fmt.Errorf("invalid session ID: %s", id)
	}
	if !safeIDRegex.MatchString(id) {
		return fmt.Errorf("invalid session ID format: %s", id)
	}
	return nil
}

// ValidateOptionalSessionID accepts "" and otherwise defers to ValidateSessionID
func ValidateOptionalSessionID(id string) error {
	if id == "" {
		return nil
	}
	return ValidateSessionID(id)
}
