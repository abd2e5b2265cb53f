package geolib

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	postcodeMaxLength     = 9
	postcodeMaxPartLength = 6
	postcodeMaxAlnumPart  = 5

	// base36("20"): long alphanumeric postcodes keep their first
	// character in a format byte, 72..107.
	postcodeLongFormatBase = 72
)

var (
	postcodeNumberRegexp  = regexp.MustCompile(`^\d+$`)
	postcodeNumber2Regexp = regexp.MustCompile(`^(\d+)[-\s](\d+)$`)
	postcodeStringRegexp  = regexp.MustCompile(`^[A-Z\d]+$`)
	postcodeString2Regexp = regexp.MustCompile(`^([A-Z\d]+)[-\s]([A-Z\d]+)$`)
)

// EncodePostcode collapses a postcode into a pair of format and value.
// Format describes how to restore a string from the value: positive
// formats are numeric, negative ones are base-36.
//
// A separator of two-part postcodes is not kept: parts may be joined
// with a hyphen or a space, DecodePostcode always restores a hyphen.
// So "12 34" comes back as "12-34".
//
// An empty postcode is encoded as (0, 0) and it is fine. Postcodes
// which cannot be represented are also encoded as (0, 0) but ok is
// false.
func EncodePostcode(postcode string) (format int8, value uint32, ok bool) {
	if postcode == "" {
		return 0, 0, true
	}

	postcode = strings.ToUpper(postcode)

	if postcodeNumberRegexp.MatchString(postcode) && len(postcode) <= postcodeMaxLength {
		number, _ := strconv.ParseUint(postcode, 10, 32)

		return int8(len(postcode)), uint32(number), true
	}

	if m := postcodeNumber2Regexp.FindStringSubmatch(postcode); m != nil {
		if len(m[1]) <= postcodeMaxPartLength &&
			len(m[2]) <= postcodeMaxPartLength &&
			len(m[1])+len(m[2]) <= postcodeMaxLength {
			number, _ := strconv.ParseUint(m[1]+m[2], 10, 32)

			return int8(len(m[1])*10 + len(m[2])), uint32(number), true
		}
	}

	if postcodeStringRegexp.MatchString(postcode) {
		if len(postcode) <= postcodeMaxLength {
			if number, ok := ParseBase36(postcode); ok && number <= math.MaxUint32 {
				return int8(-len(postcode)), uint32(number), true
			}
		}

		// leading zeroes of the remainder would be lost on decoding
		if rest := postcode[1:]; rest != "" && rest[0] != '0' {
			if number, ok := ParseBase36(rest); ok && number <= math.MaxUint32 {
				first, _ := base36Digit(postcode[0])

				return int8(postcodeLongFormatBase + first), uint32(number), true
			}
		}

		return 0, 0, false
	}

	if m := postcodeString2Regexp.FindStringSubmatch(postcode); m != nil {
		if len(m[1]) <= postcodeMaxAlnumPart && len(m[2]) <= postcodeMaxAlnumPart {
			if number, ok := ParseBase36(m[1] + m[2]); ok && number <= math.MaxUint32 {
				return int8(-(len(m[1])*10 + len(m[2]))), uint32(number), true
			}
		}
	}

	return 0, 0, false
}

// DecodePostcode restores an uppercased postcode. Two-part postcodes
// are always joined with a hyphen.
func DecodePostcode(format int8, value uint32) string {
	switch {
	case format == 0:
		return ""
	case format < -postcodeMaxLength:
		left := int(-format) / 10
		right := int(-format) % 10
		digits := zeroFill(FormatBase36(uint64(value)), left+right)

		return strings.ToUpper(digits[:left] + "-" + digits[left:])
	case format < 0:
		return strings.ToUpper(zeroFill(FormatBase36(uint64(value)), int(-format)))
	case format <= postcodeMaxLength:
		return zeroFill(strconv.FormatUint(uint64(value), 10), int(format))
	case format < postcodeLongFormatBase:
		left := int(format) / 10
		right := int(format) % 10
		digits := zeroFill(strconv.FormatUint(uint64(value), 10), left+right)

		return digits[:left] + "-" + digits[left:]
	}

	return strings.ToUpper(FormatBase36(uint64(format))[1:] + FormatBase36(uint64(value)))
}

func zeroFill(value string, length int) string {
	if len(value) >= length {
		return value
	}

	return strings.Repeat("0", length-len(value)) + value
}
