package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
)

const (
	columnGeonameID   = "geoname_id"
	columnCountry     = "country_iso_code"
	columnRegion1     = "subdivision_1_iso_code"
	columnRegion1Name = "subdivision_1_name"
	columnRegion2     = "subdivision_2_iso_code"
	columnRegion2Name = "subdivision_2_name"
	columnCity        = "city_name"
	columnMetro       = "metro_code"
	columnTimezone    = "time_zone"
	columnEU          = "is_in_european_union"

	ctxCheckEvery = 4096
)

// minifyRanking is an order of location fields for minification, from
// the most specific to the least specific one.
var minifyRanking = []geolib.Field{
	geolib.FieldMetro,
	geolib.FieldRegion2Name,
	geolib.FieldRegion2,
	geolib.FieldTimezone,
	geolib.FieldRegion1Name,
	geolib.FieldRegion1,
	geolib.FieldCountry,
	geolib.FieldCity,
	geolib.FieldEU,
}

type location struct {
	country     string
	region1     string
	region1Name string
	region2     string
	region2Name string
	city        string
	metro       string
	timezone    string
	eu          bool

	// id is a 1-based line of the location table. 0 means that no
	// range refers to this location yet.
	id uint32
}

func (l *location) value(f geolib.Field) string {
	switch f {
	case geolib.FieldCountry:
		return l.country
	case geolib.FieldRegion1:
		return l.region1
	case geolib.FieldRegion1Name:
		return l.region1Name
	case geolib.FieldRegion2:
		return l.region2
	case geolib.FieldRegion2Name:
		return l.region2Name
	case geolib.FieldCity:
		return l.city
	case geolib.FieldMetro:
		return l.metro
	case geolib.FieldTimezone:
		return l.timezone
	case geolib.FieldEU:
		if l.eu {
			return "1"
		}
	}

	return ""
}

type locationMap map[uint32]*location

func parseGeonameID(value string) (uint32, bool) {
	if value == "" {
		return 0, false
	}

	id, err := strconv.ParseUint(value, 10, 32)

	return uint32(id), err == nil && id > 0
}

func loadLocations(ctx context.Context, fs afero.Fs, path string, logger geolib.Logger) (locationMap, error) {
	reader, err := openCSV(fs, path, []string{columnGeonameID, columnCountry}, nil)
	if err != nil {
		return nil, err
	}

	defer reader.Close()

	rv := locationMap{}

	for count := 0; ; count++ {
		if count%ctxCheckEvery == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if err := reader.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				return rv, nil
			}

			return nil, err
		}

		id, ok := parseGeonameID(reader.Get(columnGeonameID))
		if !ok {
			logger.BuildWarning(path, fmt.Sprintf("line %d: invalid geoname id %q",
				reader.Line(), reader.Get(columnGeonameID)))

			continue
		}

		rv[id] = &location{
			country:     geolib.NormalizeAlpha2Code(reader.Get(columnCountry)),
			region1:     strings.ToUpper(reader.Get(columnRegion1)),
			region1Name: reader.Get(columnRegion1Name),
			region2:     strings.ToUpper(reader.Get(columnRegion2)),
			region2Name: reader.Get(columnRegion2Name),
			city:        reader.Get(columnCity),
			metro:       reader.Get(columnMetro),
			timezone:    reader.Get(columnTimezone),
			eu:          reader.Get(columnEU) == "1",
		}
	}
}

// applyLanguage overrides display names with ones from the localized
// location file. Codes are left untouched.
func applyLanguage(ctx context.Context, fs afero.Fs, path string,
	locations locationMap, logger geolib.Logger) (int, error) {
	localized, err := loadLocations(ctx, fs, path, logger)
	if err != nil {
		return 0, err
	}

	changed := 0

	for id, loc := range locations {
		other, ok := localized[id]
		if !ok {
			continue
		}

		if other.city != "" {
			loc.city = other.city
		}

		if other.region1Name != "" {
			loc.region1Name = other.region1Name
		}

		if other.region2Name != "" {
			loc.region2Name = other.region2Name
		}

		changed++
	}

	return changed, nil
}

// minifyLocations makes geonames with identical requested attributes
// share the same location. Later id assignment collapses them into a
// single row of the location table. A location with the smallest
// geoname id becomes canonical.
func minifyLocations(locations locationMap, layout geolib.RecordLayout) int {
	fields := []geolib.Field{}

	for _, f := range minifyRanking {
		if layout.Has(f) {
			fields = append(fields, f)
		}
	}

	if len(fields) == 0 {
		return 0
	}

	ids := make([]uint32, 0, len(locations))

	for id := range locations {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	// groups are keyed by the most specific field, each group maps the
	// rest of the fields to the canonical location
	groups := map[string]map[string]*location{}
	merged := 0
	key := strings.Builder{}

	for _, id := range ids {
		loc := locations[id]
		primary := loc.value(fields[0])

		key.Reset()

		for _, f := range fields[1:] {
			key.WriteString(loc.value(f))
			key.WriteByte(0)
		}

		group, ok := groups[primary]
		if !ok {
			group = map[string]*location{}
			groups[primary] = group
		}

		if base, ok := group[key.String()]; ok {
			locations[id] = base
			merged++

			continue
		}

		group[key.String()] = loc
	}

	return merged
}
