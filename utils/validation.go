package utils

import (
	"regexp"
	"strings"
)

var (
	phoneCharset = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
	phoneDigits  = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
)

// ValidatePhone accepts international numbers written with spaces, dashes or
// parentheses, e.g. "+1 (555) 123-0000".
func ValidatePhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if !phoneCharset.MatchString(phone) {
		return false
	}
	return phoneDigits.MatchString(NormalizePhone(phone))
}

// NormalizePhone strips formatting characters and returns the number in
// E.164 form, adding the leading '+' when it was left out.
func NormalizePhone(phone string) string {
	r := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	n := r.Replace(strings.TrimSpace(phone))
	if n == "" || strings.HasPrefix(n, "+") {
		return n
	}
	return "+" + n
}
