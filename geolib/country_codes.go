package geolib

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pariz/gountries"
)

var countryCodeQuery = gountries.New()

type continent struct {
	code string
	name string
}

var (
	continentsByRegion = map[string]continent{
		"Africa":    {"AF", "Africa"},
		"Asia":      {"AS", "Asia"},
		"Europe":    {"EU", "Europe"},
		"Oceania":   {"OC", "Oceania"},
		"Antarctic": {"AN", "Antarctica"},
		"Americas":  {"NA", "North America"},
	}
	southAmerica = continent{"SA", "South America"}
)

type countryInfo struct {
	query *gountries.Query
}

// Lookup returns metadata for the 2-letter ISO3166 code.
func (c countryInfo) Lookup(alpha2 string) (CountryDetails, bool) {
	country, ok := c.query.Countries[NormalizeAlpha2Code(alpha2)]
	if !ok {
		return CountryDetails{}, false
	}

	details := CountryDetails{
		Name:     country.Name.Common,
		Native:   country.Name.Common,
		Capital:  country.Capital,
		Currency: append([]string{}, country.Currencies...),
	}

	// gountries keeps native names in a map, so the first language
	// in alphabetical order wins.
	nativeLangs := make([]string, 0, len(country.Name.Native))
	for k := range country.Name.Native {
		nativeLangs = append(nativeLangs, k)
	}

	sort.Strings(nativeLangs)

	if len(nativeLangs) > 0 {
		details.Native = country.Name.Native[nativeLangs[0]].Common
	}

	cont, ok := continentsByRegion[country.Region]
	if ok && country.Region == "Americas" && country.SubRegion == "South America" {
		cont = southAmerica
	}

	details.Continent = cont.code
	details.ContinentName = cont.name

	for _, v := range country.CallingCodes {
		if code, err := strconv.Atoi(strings.TrimPrefix(v, "+")); err == nil {
			details.Phone = append(details.Phone, code)
		}
	}

	for k := range country.Languages {
		details.Languages = append(details.Languages, k)
	}

	sort.Strings(details.Languages)

	return details, true
}

// NewCountryInfo returns country metadata table backed by gountries.
func NewCountryInfo() CountryInfo {
	return countryInfo{
		query: countryCodeQuery,
	}
}

// NormalizeAlpha2Code returns a normalized 2-letter ISO3166 code.
// Normalized code is uppercased with some additional mapping. For
// example, some databases return ZZ as 'unknown' country. This function
// returns "" instead. Some databases still map Serbia to YU. This
// correctly maps YU to CS.
//
// So, whenever you want to use 2-letter ISO3166 code and it is coming
// from unknown source, it is recommended to normalize it with this
// function.
func NormalizeAlpha2Code(alpha2 string) string {
	alpha2 = strings.ToUpper(strings.TrimSpace(alpha2))

	if len(alpha2) != 2 {
		return ""
	}

	switch alpha2 {
	case "ZZ", "AP", "EU":
		return ""
	case "YU":
		return "CS"
	case "FX":
		return "FR"
	case "UK":
		return "GB"
	default:
		return alpha2
	}
}
