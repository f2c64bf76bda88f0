// Package phone validates lead mobile numbers and formats them for messaging gateways.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is the region assumed for bare national numbers.
const DefaultRegion = "IN"

// MobileLength is the number of digits a stored mobile carries.
const MobileLength = 10

// ErrInvalidMobile reports a number that cannot be used as a lead mobile.
var ErrInvalidMobile = errors.New("phone: invalid mobile number")

// IsMobile reports whether raw is exactly ten ASCII digits.
func IsMobile(raw string) bool {
	if len(raw) != MobileLength {
		return false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return false
		}
	}
	return true
}

// Normalize strips separators and a leading country code or trunk prefix,
// returning the ten-digit national number.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidMobile
	}
	if IsMobile(raw) {
		return raw, nil
	}
	parsed, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMobile, err)
	}
	national := fmt.Sprintf("%d", parsed.GetNationalNumber())
	if !IsMobile(national) {
		return "", ErrInvalidMobile
	}
	return national, nil
}

// WhatsAppNumber returns the number in the gateway format: country code followed by
// the national number with no plus sign, e.g. 919876543210.
func WhatsAppNumber(raw string) (string, error) {
	national, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	parsed, err := phonenumbers.Parse(national, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMobile, err)
	}
	return strings.TrimPrefix(phonenumbers.Format(parsed, phonenumbers.E164), "+"), nil
}
