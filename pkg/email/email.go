// Package email derives presentable names from email addresses.
package email

import (
	"strings"
	"unicode"
)

// DisplayName builds a name from the local part of address, splitting on
// '.', '_', '-' and '+'. "ada.lovelace@uni.edu" yields "Ada Lovelace". Plus
// tags are dropped. Returns "" when nothing usable remains.
func DisplayName(address string) string {
	localPart := strings.TrimSpace(address)
	if at := strings.IndexByte(localPart, '@'); at >= 0 {
		localPart = localPart[:at]
	}
	if plus := strings.IndexByte(localPart, '+'); plus >= 0 {
		localPart = localPart[:plus]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, p := range parts {
		parts[i] = capitalize(strings.ToLower(p))
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
