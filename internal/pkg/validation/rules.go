package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// IdentifierMaxLength matches the roster_entries.identifier column
	IdentifierMaxLength = 255

	// IdentifierNameMaxLength bounds the roster's identifier label
	IdentifierNameMaxLength = 255

	// lineBreakPattern splits pasted identifier lists (CRLF, LF or CR)
	lineBreakPattern = `\r\n|\r|\n`
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	LineBreak *regexp.Regexp
}{
	LineBreak: regexp.MustCompile(lineBreakPattern),
}

// StringValidation checks a single string value
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation. Lengths count runes.
func (v *StringValidation) Validate() bool {
	if v.Required && v.Value == "" {
		return false
	}

	if !v.Required && v.Value == "" {
		return true
	}

	length := len([]rune(v.Value))
	if v.MinLen > 0 && length < v.MinLen {
		return false
	}

	if v.MaxLen > 0 && length > v.MaxLen {
		return false
	}

	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}

	return true
}

// SplitIdentifiers splits a pasted list into identifiers: one per line,
// trimmed, blanks dropped, first occurrence kept.
func SplitIdentifiers(raw string) []string {
	lines := CompiledPatterns.LineBreak.Split(raw, -1)

	seen := make(map[string]struct{}, len(lines))
	identifiers := make([]string, 0, len(lines))
	for _, line := range lines {
		identifier := strings.TrimSpace(line)
		if identifier == "" {
			continue
		}
		if _, ok := seen[identifier]; ok {
			continue
		}
		seen[identifier] = struct{}{}
		identifiers = append(identifiers, identifier)
	}
	return identifiers
}

// ValidIdentifier reports whether a single identifier can be stored
func ValidIdentifier(identifier string) bool {
	return NewStringValidation(identifier).WithMaxLength(IdentifierMaxLength).Validate()
}

// RegisterCustomValidations adds the "identifiers" tag: the field must hold at
// least one identifier and none may exceed IdentifierMaxLength.
func RegisterCustomValidations(v *validator.Validate) error {
	return v.RegisterValidation("identifiers", func(fl validator.FieldLevel) bool {
		identifiers := SplitIdentifiers(fl.Field().String())
		if len(identifiers) == 0 {
			return false
		}
		for _, identifier := range identifiers {
			if !ValidIdentifier(identifier) {
				return false
			}
		}
		return true
	})
}
