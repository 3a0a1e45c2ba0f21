// Package phone normalizes phone numbers to E.164 format.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number carries no country prefix.
const DefaultRegion = "US"

// Normalize parses a raw phone number and returns its E.164 representation.
// Numbers without an international prefix are interpreted in DefaultRegion.
// Returns an empty string when the input cannot be parsed as a valid number.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	num, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsValidNumber(num) {
		return ""
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
