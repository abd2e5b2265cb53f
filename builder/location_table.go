package builder

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/9seconds/iplocation/geolib"
)

// locationTable collects location records in order of assigned ids
// together with dictionaries they refer to.
type locationTable struct {
	layout geolib.RecordLayout
	logger geolib.Logger
	file   string

	records      []byte
	names        *nameBlob
	region1Names *dictionary
	region2Names *dictionary
	timezones    *dictionary
	eu           map[string]bool
}

func (l *locationTable) Add(loc *location) {
	layout := l.layout
	record := make([]byte, layout.LocationRecordSize())

	if layout.Has(geolib.FieldCountry) && len(loc.country) == 2 {
		copy(record[layout.Offset(geolib.FieldCountry):], loc.country)

		if layout.Has(geolib.FieldEU) && loc.eu {
			l.eu[loc.country] = true
		}
	}

	if layout.Has(geolib.FieldRegion1) {
		l.putRegion(record, geolib.FieldRegion1, loc.region1)
	}

	if layout.Has(geolib.FieldRegion1Name) {
		l.putIndex(record, geolib.FieldRegion1Name, l.region1Names, loc.region1Name)
	}

	if layout.Has(geolib.FieldRegion2) {
		l.putRegion(record, geolib.FieldRegion2, loc.region2)
	}

	if layout.Has(geolib.FieldRegion2Name) {
		l.putIndex(record, geolib.FieldRegion2Name, l.region2Names, loc.region2Name)
	}

	if layout.Has(geolib.FieldMetro) && loc.metro != "" {
		if metro, err := strconv.ParseUint(loc.metro, 10, 16); err == nil {
			binary.LittleEndian.PutUint16(record[layout.Offset(geolib.FieldMetro):], uint16(metro))
		} else {
			l.logger.BuildWarning(l.file, fmt.Sprintf("invalid metro code %q", loc.metro))
		}
	}

	if layout.Has(geolib.FieldTimezone) {
		l.putIndex(record, geolib.FieldTimezone, l.timezones, loc.timezone)
	}

	if layout.Has(geolib.FieldCity) {
		ref, err := l.names.Add(loc.city)
		if err != nil {
			l.logger.BuildWarning(l.file, fmt.Sprintf("city %q is dropped: %v", loc.city, err))
		}

		binary.LittleEndian.PutUint32(record[layout.Offset(geolib.FieldCity):], ref)
	}

	l.records = append(l.records, record...)
}

func (l *locationTable) putRegion(record []byte, field geolib.Field, code string) {
	if code == "" {
		return
	}

	value, ok := geolib.EncodeRegionCode(code)
	if !ok {
		l.logger.BuildWarning(l.file, fmt.Sprintf("invalid %s code %q", field, code))

		return
	}

	binary.LittleEndian.PutUint16(record[l.layout.Offset(field):], value)
}

func (l *locationTable) putIndex(record []byte, field geolib.Field, dict *dictionary, value string) {
	idx := dict.Add(value)
	if idx > math.MaxUint16 {
		l.logger.BuildWarning(l.file, fmt.Sprintf("too many distinct %s values, %q is dropped", field, value))

		return
	}

	binary.LittleEndian.PutUint16(record[l.layout.Offset(field):], uint16(idx))
}

// SubTables returns dictionaries of requested location fields.
func (l *locationTable) SubTables() geolib.SubTables {
	rv := geolib.SubTables{}

	if l.layout.Has(geolib.FieldRegion1Name) {
		rv.Region1Name = l.region1Names.Values()
	}

	if l.layout.Has(geolib.FieldRegion2Name) {
		rv.Region2Name = l.region2Names.Values()
	}

	if l.layout.Has(geolib.FieldTimezone) {
		rv.Timezone = l.timezones.Values()
	}

	if l.layout.Has(geolib.FieldEU) && len(l.eu) > 0 {
		rv.EU = l.eu
	}

	return rv
}

func newLocationTable(layout geolib.RecordLayout, logger geolib.Logger, file string) *locationTable {
	return &locationTable{
		layout:       layout,
		logger:       logger,
		file:         file,
		names:        newNameBlob(),
		region1Names: newDictionary(),
		region2Names: newDictionary(),
		timezones:    newDictionary(),
		eu:           map[string]bool{},
	}
}
