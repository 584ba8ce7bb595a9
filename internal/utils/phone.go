package utils

import (
	"strings"
)

// FormatSriLankanPhone normalizes a phone number for the SMS gateway:
// whitespace, hyphens and the leading '+' are stripped, and local numbers
// ("0771234567") get the 94 country prefix.
func FormatSriLankanPhone(phone string) string {
	formatted := strings.ReplaceAll(phone, " ", "")
	formatted = strings.ReplaceAll(formatted, "-", "")
	formatted = strings.TrimPrefix(formatted, "+")

	if strings.HasPrefix(formatted, "0") {
		formatted = "94" + formatted[1:]
	} else if !strings.HasPrefix(formatted, "94") {
		formatted = "94" + formatted
	}
	return formatted
}
