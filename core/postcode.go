package core

import (
	"regexp"
	"strings"
)

var postcodePattern = regexp.MustCompile(`^[1-9][0-9]{3}[A-Z]{2}$`)

// NormalizePostcode strips all spaces from a Dutch postcode and converts it to uppercase,
// e.g. "1234 ab" becomes "1234AB".
func NormalizePostcode(postcode string) string {
	return strings.ToUpper(strings.ReplaceAll(postcode, " ", ""))
}

// MatchesPostcodePattern reports whether the normalized postcode has the "1234AB" format.
func MatchesPostcodePattern(postcode string) bool {
	return postcodePattern.MatchString(NormalizePostcode(postcode))
}

// HasReservedPostcodePrefix reports whether the normalized postcode starts with one of the
// reserved "0000" or "9999" prefixes.
func HasReservedPostcodePrefix(postcode string) bool {
	clean := NormalizePostcode(postcode)
	return strings.HasPrefix(clean, "0000") || strings.HasPrefix(clean, "9999")
}

// IsValidPostcode reports whether the postcode is a valid Dutch postcode after normalization.
// This does NOT check whether the postcode is actually in use.
func IsValidPostcode(postcode string) bool {
	return MatchesPostcodePattern(postcode) && !HasReservedPostcodePrefix(postcode)
}

// PostcodeDigits returns the numeric part of the postcode, or the empty string if the
// normalized postcode is shorter than four characters.
func PostcodeDigits(postcode string) string {
	clean := NormalizePostcode(postcode)
	if len(clean) < 4 {
		return ""
	}
	return clean[:4]
}
