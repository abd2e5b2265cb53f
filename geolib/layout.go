package geolib

import (
	"fmt"
	"strings"
)

// Field is a requested attribute. Values are bit flags; a sum of
// requested flags in base-36 is a name of the directory where the
// database is stored.
type Field uint16

const (
	FieldLatitude Field = 1 << iota
	FieldLongitude
	FieldArea
	FieldPostcode
	FieldCountry
	FieldRegion1
	FieldRegion1Name
	FieldRegion2
	FieldRegion2Name
	FieldMetro
	FieldTimezone
	FieldCity
	FieldEU

	FieldAll = FieldEU<<1 - 1
)

const (
	// DataTypeCountry is a record which contains only 2 chars of
	// country code.
	DataTypeCountry = "country"

	// DataTypeCity is a record with inline attributes and a reference
	// to a location table.
	DataTypeCity = "city"

	locationIDSize = 4
	countrySize    = 2

	inlineFields   = FieldLatitude | FieldLongitude | FieldPostcode | FieldArea
	locationFields = FieldCountry | FieldRegion1 | FieldRegion1Name |
		FieldRegion2 | FieldRegion2Name | FieldMetro | FieldTimezone |
		FieldCity | FieldEU
	dictionaryFields = FieldRegion1Name | FieldRegion2Name | FieldTimezone |
		FieldArea | FieldEU
)

var (
	fieldNames = map[Field]string{
		FieldLatitude:    "latitude",
		FieldLongitude:   "longitude",
		FieldArea:        "area",
		FieldPostcode:    "postcode",
		FieldCountry:     "country",
		FieldRegion1:     "region1",
		FieldRegion1Name: "region1_name",
		FieldRegion2:     "region2",
		FieldRegion2Name: "region2_name",
		FieldMetro:       "metro",
		FieldTimezone:    "timezone",
		FieldCity:        "city",
		FieldEU:          "eu",
	}
	fieldsByName = map[string]Field{}

	// the order of attributes within a payload record
	inlineOrder = []Field{
		FieldLatitude,
		FieldLongitude,
		FieldPostcode,
		FieldArea,
	}

	// the order of attributes within a location record
	locationOrder = []Field{
		FieldCountry,
		FieldRegion1,
		FieldRegion1Name,
		FieldRegion2,
		FieldRegion2Name,
		FieldMetro,
		FieldTimezone,
		FieldCity,
	}
)

func (f Field) String() string {
	return fieldNames[f]
}

// Size returns a number of bytes an attribute takes in a record.
func (f Field) Size() int {
	switch f {
	case FieldPostcode:
		return 5
	case FieldArea:
		return 1
	case FieldLatitude, FieldLongitude, FieldCity:
		return 4
	case FieldEU:
		return 0
	}

	return 2
}

// RecordLayout describes byte offsets of attributes in payload and
// location records. It is immutable and cheap to copy.
type RecordLayout struct {
	fields  Field
	offsets map[Field]int

	mainRecordSize     int
	locationRecordSize int
}

// Fields returns requested attributes in canonical order.
func (r RecordLayout) Fields() []Field {
	rv := []Field{}

	for f := FieldLatitude; f <= FieldEU; f <<= 1 {
		if r.Has(f) {
			rv = append(rv, f)
		}
	}

	return rv
}

func (r RecordLayout) Has(f Field) bool {
	return r.fields&f != 0
}

// CountryOnly is true if nothing but a country is requested. In that
// case payload is just 2 raw chars of the code.
func (r RecordLayout) CountryOnly() bool {
	return r.fields == FieldCountry
}

func (r RecordLayout) DataType() string {
	if r.CountryOnly() {
		return DataTypeCountry
	}

	return DataTypeCity
}

// LocationFile is true if payload refers to a location table.
func (r RecordLayout) LocationFile() bool {
	return !r.CountryOnly() && r.fields&locationFields != 0
}

// NeedsDictionaries is true if some attributes are stored as indexes
// of dictionary tables.
func (r RecordLayout) NeedsDictionaries() bool {
	return !r.CountryOnly() && r.fields&dictionaryFields != 0
}

func (r RecordLayout) MainRecordSize() int {
	return r.mainRecordSize
}

func (r RecordLayout) LocationRecordSize() int {
	return r.locationRecordSize
}

// Offset returns an offset of the attribute within its record (payload
// record for inline attributes, location record for the rest).
func (r RecordLayout) Offset(f Field) int {
	return r.offsets[f]
}

// Signature is a name of the directory where database of this layout
// is stored.
func (r RecordLayout) Signature() string {
	return FormatBase36(uint64(r.fields))
}

func (r RecordLayout) String() string {
	names := make([]string, 0, len(fieldNames))

	for _, v := range r.Fields() {
		names = append(names, v.String())
	}

	return strings.Join(names, ",")
}

// ShardGeometry returns a way how lines are distributed in small
// memory mode for the given IP version.
func (r RecordLayout) ShardGeometry(version, shardFileSize int) ShardGeometry {
	ipSize := IPv4Size
	if version == 6 {
		ipSize = IPv6Size
	}

	recordSize := ipSize + r.mainRecordSize
	fileLineMax := shardFileSize / recordSize

	if fileLineMax == 0 {
		fileLineMax = 1
	}

	return ShardGeometry{
		RecordSize:    recordSize,
		FileLineMax:   fileLineMax,
		FolderLineMax: fileLineMax * ShardFilesPerFolder,
	}
}

// ShardGeometry maps a line number to a shard file. Each shard file
// stores up to FileLineMax records of (end, payload), each folder
// stores up to ShardFilesPerFolder files.
type ShardGeometry struct {
	RecordSize    int
	FileLineMax   int
	FolderLineMax int
}

func (s ShardGeometry) Locate(line int) (folder, file string, offset int) {
	folder = NumberToDir(line / s.FolderLineMax)
	file = NumberToDir(line % s.FolderLineMax / s.FileLineMax)
	offset = line % s.FileLineMax * s.RecordSize

	return
}

// ParseField returns a field by its name.
func ParseField(name string) (Field, error) {
	f, ok := fieldsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownField)
	}

	return f, nil
}

// NewRecordLayout builds a layout from field names. "all" means every
// known attribute.
func NewRecordLayout(names []string) (RecordLayout, error) {
	var fields Field

	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			fields |= FieldAll

			continue
		}

		f, err := ParseField(name)
		if err != nil {
			return RecordLayout{}, err
		}

		fields |= f
	}

	return NewRecordLayoutFromFields(fields)
}

// NewRecordLayoutFromFields builds a layout from a bit mask of fields.
// EU membership is looked up by country so it brings country with it.
func NewRecordLayoutFromFields(fields Field) (RecordLayout, error) {
	fields &= FieldAll

	if fields == 0 {
		return RecordLayout{}, ErrNoFields
	}

	if fields&FieldEU != 0 {
		fields |= FieldCountry
	}

	layout := RecordLayout{
		fields:  fields,
		offsets: map[Field]int{},
	}

	if layout.CountryOnly() {
		layout.offsets[FieldCountry] = 0
		layout.mainRecordSize = countrySize

		return layout, nil
	}

	offset := 0

	if layout.LocationFile() {
		offset += locationIDSize
	}

	for _, f := range inlineOrder {
		if layout.Has(f) {
			layout.offsets[f] = offset
			offset += f.Size()
		}
	}

	layout.mainRecordSize = offset
	offset = 0

	if layout.LocationFile() {
		for _, f := range locationOrder {
			if layout.Has(f) {
				layout.offsets[f] = offset
				offset += f.Size()
			}
		}
	}

	layout.locationRecordSize = offset

	return layout, nil
}

func init() {
	for k, v := range fieldNames {
		fieldsByName[v] = k
	}
}
