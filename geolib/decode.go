package geolib

import (
	"bytes"
	"encoding/binary"
)

func (s *databaseState) decode(payload []byte) *GeoData {
	layout := s.layout
	data := &GeoData{}

	if layout.CountryOnly() {
		data.Country = decodeCountry(payload)

		return data
	}

	if layout.Has(FieldLatitude) {
		value := UnscaleCoordinate(int32(binary.LittleEndian.Uint32(payload[layout.Offset(FieldLatitude):])))
		data.Latitude = &value
	}

	if layout.Has(FieldLongitude) {
		value := UnscaleCoordinate(int32(binary.LittleEndian.Uint32(payload[layout.Offset(FieldLongitude):])))
		data.Longitude = &value
	}

	if layout.Has(FieldPostcode) {
		offset := layout.Offset(FieldPostcode)
		data.Postcode = DecodePostcode(int8(payload[offset]),
			binary.LittleEndian.Uint32(payload[offset+1:]))
	}

	if layout.Has(FieldArea) {
		if idx := int(payload[layout.Offset(FieldArea)]); idx < len(s.sub.Area) {
			data.Area = s.sub.Area[idx]
		}
	}

	if layout.LocationFile() {
		if id := binary.LittleEndian.Uint32(payload); id > 0 {
			s.decodeLocation(int(id), data)
		}
	}

	return data
}

func (s *databaseState) decodeLocation(id int, data *GeoData) {
	layout := s.layout
	size := layout.LocationRecordSize()
	record := s.locations[(id-1)*size : id*size]

	if layout.Has(FieldCountry) {
		data.Country = decodeCountry(record[layout.Offset(FieldCountry):])

		if layout.Has(FieldEU) && s.sub.EU[data.Country] {
			data.EU = true
		}
	}

	if layout.Has(FieldRegion1) {
		data.Region1 = DecodeRegionCode(binary.LittleEndian.Uint16(record[layout.Offset(FieldRegion1):]))
	}

	if layout.Has(FieldRegion1Name) {
		data.Region1Name = dictionaryValue(s.sub.Region1Name,
			binary.LittleEndian.Uint16(record[layout.Offset(FieldRegion1Name):]))
	}

	if layout.Has(FieldRegion2) {
		data.Region2 = DecodeRegionCode(binary.LittleEndian.Uint16(record[layout.Offset(FieldRegion2):]))
	}

	if layout.Has(FieldRegion2Name) {
		data.Region2Name = dictionaryValue(s.sub.Region2Name,
			binary.LittleEndian.Uint16(record[layout.Offset(FieldRegion2Name):]))
	}

	if layout.Has(FieldMetro) {
		data.Metro = int(binary.LittleEndian.Uint16(record[layout.Offset(FieldMetro):]))
	}

	if layout.Has(FieldTimezone) {
		data.Timezone = dictionaryValue(s.sub.Timezone,
			binary.LittleEndian.Uint16(record[layout.Offset(FieldTimezone):]))
	}

	if layout.Has(FieldCity) {
		offset, length := UnpackCityRef(binary.LittleEndian.Uint32(record[layout.Offset(FieldCity):]))
		if length > 0 && offset+length <= len(s.names) {
			data.City = string(s.names[offset : offset+length])
		}
	}
}

func decodeCountry(data []byte) string {
	return string(bytes.TrimRight(data[:countrySize], "\x00"))
}

func dictionaryValue(dictionary []string, idx uint16) string {
	if int(idx) < len(dictionary) {
		return dictionary[idx]
	}

	return ""
}
