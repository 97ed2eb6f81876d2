package contact

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
)

// ValidEmail reports whether s, trimmed, is a local@domain.tld address.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && emailRe.MatchString(s)
}

// ValidPhone reports whether s is a plausible phone number once whitespace
// (Unicode spaces included), hyphens and parentheses are removed.
func ValidPhone(s string) bool {
	compact := strings.Map(dropPhoneSeparator, s)
	return compact != "" && phoneRe.MatchString(compact)
}

func dropPhoneSeparator(r rune) rune {
	if unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' {
		return -1
	}
	return r
}
