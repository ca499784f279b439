package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	// numbers without a leading + are tried against these regions in order
	supportedRegions = []string{
		"US",
		"GB",
		"DE",
		"CH",
		"IL",
	}
)

// NormalizePhone formats phone as E.164. Input that cannot be parsed is
// returned trimmed but otherwise unchanged.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err != nil || !phonenumbers.IsPossibleNumber(parsedNumber) {
			continue
		}
		return phonenumbers.Format(parsedNumber, phonenumbers.E164)
	}
	return phone
}
