package forms

import "fmt"

// ValidationError reports the first dynamic-rule violation of a save. The
// whole save is rejected; nothing is persisted.
type ValidationError struct {
	Key     string // storage key of the offending field
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

func failf(key, format string, args ...any) *ValidationError {
	return &ValidationError{Key: key, Message: fmt.Sprintf(format, args...)}
}
