package event

import (
	"strings"
	"unicode"
)

// SmartName distills a display name into a usable first name. Push names are
// frequently emoji-laden nicknames; anything that doesn't survive cleaning
// returns "" so callers can fall back to a generic salutation.
func SmartName(raw string) string {
	if raw == "" {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(raw), " ")

	var b strings.Builder
	for _, r := range first {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	clean := b.String()

	if len([]rune(clean)) < 2 || len([]rune(clean)) > 15 {
		return ""
	}
	if clean == strings.ToLower(clean) {
		runes := []rune(clean)
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	}
	return clean
}

// IsDigitOption reports whether the input is a single bare menu digit (1-6).
func IsDigitOption(input string) bool {
	switch input {
	case "1", "2", "3", "4", "5", "6":
		return true
	}
	return false
}

// ContainsAny reports whether the text contains any of the needles,
// case-insensitively.
func ContainsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// HasMenuPrefix reports whether the input is a structured menu-internal token
// (a row id minted by one of our own lists). Such tokens must never reach the
// direct-keyword detectors or the generative fallback.
func HasMenuPrefix(input string) bool {
	for _, p := range []string{"menu_", "mod_", "exp_", "goal_", "final_"} {
		if strings.HasPrefix(input, p) {
			return true
		}
	}
	return false
}
