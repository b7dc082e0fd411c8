package chatbot

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

// emailPattern accepts a permissive local@domain.tld shape.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// textLen counts the trimmed value in UTF-16 code units, the unit the widget's
// browser-side length checks use, so characters outside the BMP count twice.
func textLen(value string) int {
	n := 0
	for _, r := range strings.TrimSpace(value) {
		if utf16.RuneLen(r) == 2 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// ValidName requires at least two characters after trimming.
func ValidName(value string) bool {
	return textLen(value) >= 2
}

// ValidEmail checks the trimmed value against the local@domain.tld pattern.
func ValidEmail(value string) bool {
	return emailPattern.MatchString(strings.TrimSpace(value))
}

// ValidPhone requires at least ten characters after trimming. The format is not checked.
func ValidPhone(value string) bool {
	return textLen(value) >= 10
}

// ValidMessage requires at least ten characters after trimming.
func ValidMessage(value string) bool {
	return textLen(value) >= 10
}

// Validate applies the rule for step. Steps without input never validate.
func Validate(step Step, value string) bool {
	switch step {
	case StepName:
		return ValidName(value)
	case StepEmail:
		return ValidEmail(value)
	case StepPhone:
		return ValidPhone(value)
	case StepMessage:
		return ValidMessage(value)
	default:
		return false
	}
}
