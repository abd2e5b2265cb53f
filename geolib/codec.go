package geolib

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	regionCodeBase      = 37
	regionCodeMaxLength = 3

	// CountryCodeMaxNumber is a number of ZZ.
	CountryCodeMaxNumber = 675

	CityNameMaxLength = math.MaxUint8
	CityBlobMaxOffset = 1<<24 - 1

	coordinateScale = 10000
	geocodeCCBits   = 10
	geocodeCCMask   = 1<<geocodeCCBits - 1
)

func base36Digit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	}

	return 0, false
}

// ParseBase36 parses a case-insensitive base-36 string.
func ParseBase36(value string) (uint64, bool) {
	if value == "" {
		return 0, false
	}

	number, err := strconv.ParseUint(value, 36, 64)

	return number, err == nil
}

// FormatBase36 returns lowercased base-36 representation.
func FormatBase36(number uint64) string {
	return strconv.FormatUint(number, 36)
}

// NumberToDir returns base-36 representation of n padded with
// underscores to 2 characters. It is used for shard folders, shard
// files and bucket names.
func NumberToDir(n int) string {
	name := strconv.FormatInt(int64(n), 36)

	if len(name) < 2 {
		return strings.Repeat("_", 2-len(name)) + name
	}

	return name
}

// EncodeRegionCode packs a subdivision code of up to 3 characters
// [0-9A-Z] into a number. Each character is stored as its base-36
// digit plus one, so zero means 'absent'.
func EncodeRegionCode(code string) (uint16, bool) {
	if len(code) > regionCodeMaxLength {
		return 0, false
	}

	var number uint32

	for i := 0; i < len(code); i++ {
		digit, ok := base36Digit(code[i])
		if !ok {
			return 0, false
		}

		number = number*regionCodeBase + uint32(digit) + 1
	}

	return uint16(number), true
}

func DecodeRegionCode(number uint16) string {
	buf := make([]byte, 0, regionCodeMaxLength)
	n := int(number)

	for n > 0 {
		digit := n%regionCodeBase - 1
		if digit < 0 {
			return ""
		}

		buf = append(buf, base36Alphabet[digit])
		n /= regionCodeBase
	}

	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}

	return strings.ToUpper(string(buf))
}

// CountryCodeToNumber maps AA..ZZ to 0..675.
func CountryCodeToNumber(code string) (uint16, error) {
	if len(code) != 2 ||
		code[0] < 'A' || code[0] > 'Z' ||
		code[1] < 'A' || code[1] > 'Z' {
		return 0, fmt.Errorf("%q: %w", code, ErrInvalidCountryCode)
	}

	return uint16(code[0]-'A')*26 + uint16(code[1]-'A'), nil
}

func NumberToCountryCode(number uint16) (string, error) {
	if number > CountryCodeMaxNumber {
		return "", fmt.Errorf("%d: %w", number, ErrInvalidCountryCode)
	}

	return string([]byte{byte(number/26) + 'A', byte(number%26) + 'A'}), nil
}

// PackCityRef packs an offset in the city name blob and a length of
// the name into a single number: length + offset<<8.
func PackCityRef(offset, length int) (uint32, error) {
	if length < 0 || length > CityNameMaxLength {
		return 0, fmt.Errorf("length %d: %w", length, ErrCityRefOverflow)
	}

	if offset < 0 || offset > CityBlobMaxOffset {
		return 0, fmt.Errorf("offset %d: %w", offset, ErrCityRefOverflow)
	}

	return uint32(length) | uint32(offset)<<8, nil
}

func UnpackCityRef(ref uint32) (offset, length int) {
	return int(ref >> 8), int(ref & 0xff)
}

// PackGeocode packs a scaled latitude together with a country code
// number: latitude<<10 | cc.
func PackGeocode(latitude int32, cc uint16) int32 {
	return latitude<<geocodeCCBits | int32(cc&geocodeCCMask)
}

func UnpackGeocode(value int32) (latitude int32, cc uint16) {
	return value >> geocodeCCBits, uint16(value & geocodeCCMask)
}

// ScaleCoordinate converts degrees into integer with 4 decimal digits.
func ScaleCoordinate(degrees float64) int32 {
	return int32(math.Round(degrees * coordinateScale))
}

func UnscaleCoordinate(value int32) float64 {
	return float64(value) / coordinateScale
}
