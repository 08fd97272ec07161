package helpers

import "strings"

// NullableString returns nil for a blank string, otherwise a pointer to the
// trimmed value. Used for optional text columns.
func NullableString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences s, returning "" for nil
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
