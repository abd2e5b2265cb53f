package cdn

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/9seconds/iplocation/geolib"
)

// Kind is a flavor of the exported payload.
type Kind int

const (
	// KindCountry payload is 2 raw characters of a country code.
	KindCountry Kind = iota + 1

	// KindGeocode payload is a latitude packed together with a country
	// code number and a longitude: int32(lat<<10|cc), int32(lon).
	KindGeocode
)

const (
	countryBuckets = 1024
	geocodeBuckets = 2048

	// unknownCountryNumber does not decode into any country code.
	unknownCountryNumber = 1023
)

func (k Kind) String() string {
	switch k {
	case KindCountry:
		return "country"
	case KindGeocode:
		return "geocode"
	}

	return "unknown"
}

// Buckets returns the maximal number of shards per IP version.
func (k Kind) Buckets() int {
	if k == KindGeocode {
		return geocodeBuckets
	}

	return countryBuckets
}

func (k Kind) PayloadSize() int {
	if k == KindGeocode {
		return 8
	}

	return 2
}

func (k Kind) validate(layout geolib.RecordLayout) error {
	switch k {
	case KindCountry:
		if layout.Has(geolib.FieldCountry) {
			return nil
		}
	case KindGeocode:
		if layout.Has(geolib.FieldCountry) &&
			layout.Has(geolib.FieldLatitude) &&
			layout.Has(geolib.FieldLongitude) {
			return nil
		}
	default:
		return ErrUnknownKind
	}

	return fmt.Errorf("layout %q cannot be exported as %s: %w", layout, k, ErrUnsupportedLayout)
}

func (k Kind) appendPayload(buf []byte, data *geolib.GeoData) []byte {
	if k == KindCountry {
		if len(data.Country) != 2 {
			return append(buf, 0, 0)
		}

		return append(buf, data.Country[0], data.Country[1])
	}

	var latitude, longitude int32

	if data.Latitude != nil {
		latitude = geolib.ScaleCoordinate(*data.Latitude)
	}

	if data.Longitude != nil {
		longitude = geolib.ScaleCoordinate(*data.Longitude)
	}

	cc, err := geolib.CountryCodeToNumber(data.Country)
	if err != nil {
		cc = unknownCountryNumber
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(geolib.PackGeocode(latitude, cc)))

	return binary.LittleEndian.AppendUint32(buf, uint32(longitude))
}

func (k Kind) decodePayload(payload []byte) *Result {
	if k == KindCountry {
		country := strings.TrimRight(string(payload[:2]), "\x00")
		if country == "" {
			return nil
		}

		return &Result{Country: country}
	}

	latitude, cc := geolib.UnpackGeocode(int32(binary.LittleEndian.Uint32(payload)))
	lat := geolib.UnscaleCoordinate(latitude)
	lon := geolib.UnscaleCoordinate(int32(binary.LittleEndian.Uint32(payload[4:])))
	rv := &Result{
		Latitude:  &lat,
		Longitude: &lon,
	}

	if country, err := geolib.NumberToCountryCode(cc); err == nil {
		rv.Country = country
	}

	return rv
}

// ParseKind returns a kind by its name.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "country":
		return KindCountry, nil
	case "geocode":
		return KindGeocode, nil
	}

	return 0, fmt.Errorf("%q: %w", name, ErrUnknownKind)
}

// Result is a decoded payload of the network variant.
type Result struct {
	Country   string   `json:"country,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}
