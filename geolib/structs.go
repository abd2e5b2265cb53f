package geolib

// GeoData is a decoded payload. Only requested attributes are set.
type GeoData struct {
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Postcode    string   `json:"postcode,omitempty"`
	Area        int      `json:"area,omitempty"`
	Country     string   `json:"country,omitempty"`
	EU          bool     `json:"eu,omitempty"`
	Region1     string   `json:"region1,omitempty"`
	Region1Name string   `json:"region1_name,omitempty"`
	Region2     string   `json:"region2,omitempty"`
	Region2Name string   `json:"region2_name,omitempty"`
	Metro       int      `json:"metro,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	City        string   `json:"city,omitempty"`

	CountryName   string   `json:"country_name,omitempty"`
	CountryNative string   `json:"country_native,omitempty"`
	Continent     string   `json:"continent,omitempty"`
	ContinentName string   `json:"continent_name,omitempty"`
	Capital       string   `json:"capital,omitempty"`
	Phone         []int    `json:"phone,omitempty"`
	Currency      []string `json:"currency,omitempty"`
	Languages     []string `json:"languages,omitempty"`
}

// Range is a single stored IP range with its decoded payload.
type Range struct {
	Start Address
	End   Address
	Data  *GeoData
}

// CountryDetails is static metadata of a country.
type CountryDetails struct {
	Name          string
	Native        string
	Continent     string
	ContinentName string
	Capital       string
	Phone         []int
	Currency      []string
	Languages     []string
}

// SubTables are dictionaries which are persisted into sub.json. Index
// of the element is a value stored in the record, 0 means 'absent'.
type SubTables struct {
	Region1Name []string        `json:"region1_name,omitempty"`
	Region2Name []string        `json:"region2_name,omitempty"`
	Timezone    []string        `json:"timezone,omitempty"`
	Area        []int           `json:"area,omitempty"`
	EU          map[string]bool `json:"eu,omitempty"`
}
