package cdn_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/9seconds/iplocation/builder"
	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
)

const (
	testRanges = 3000

	testLocationsCSV = "geoname_id,locale_code,continent_code,continent_name," +
		"country_iso_code,country_name,subdivision_1_iso_code,subdivision_1_name," +
		"subdivision_2_iso_code,subdivision_2_name,city_name,metro_code,time_zone," +
		"is_in_european_union\n" +
		`6252001,en,NA,"North America",US,"United States",,,,,,,America/Chicago,0` + "\n" +
		`2921044,en,EU,Europe,DE,Germany,,,,,,,Europe/Berlin,1` + "\n"
	testBlocksHeader = "network,geoname_id,registered_country_geoname_id," +
		"represented_country_geoname_id,is_anonymous_proxy,is_satellite_provider," +
		"postal_code,latitude,longitude,accuracy_radius\n"
	testBlocksV4CSV = testBlocksHeader +
		"8.8.8.0/24,6252001,6252001,,0,0,,37.751,-97.822,1000\n" +
		"81.0.0.0/16,2921044,2921044,,0,0,,51.2993,9.491,100\n"
	testBlocksV6CSV = testBlocksHeader +
		"2607:f8b0::/32,6252001,6252001,,0,0,,37.751,-97.822,1000\n"
	testSimpleV6CSV = "network1,network2,cc\n" +
		"2607:f8b0::,2607:f8b0:ffff:ffff:ffff:ffff:ffff:ffff,US\n" +
		"2a00:1450::,2a00:1450:ffff:ffff:ffff:ffff:ffff:ffff,DE\n"
)

// testRange returns the i-th generated IPv4 range. Ranges are /24
// networks with a gap of /24 between them, countries alternate.
func testRange(i int) (start, end geolib.Address, country string) {
	first := uint32(11<<24 + i*512)
	start = geolib.Address{Version: 4, V4: first}
	end = geolib.Address{Version: 4, V4: first + 255}
	country = "US"

	if i%2 == 1 {
		country = "DE"
	}

	return start, end, country
}

func testSimpleV4CSV() string {
	buf := strings.Builder{}

	for i := 0; i < testRanges; i++ {
		start, end, country := testRange(i)
		fmt.Fprintf(&buf, "%s,%s,%s\n", start, end, country)
	}

	return buf.String()
}

type DatabaseTestSuite struct {
	suite.Suite

	fs afero.Fs
}

func (suite *DatabaseTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()
}

func (suite *DatabaseTestSuite) buildDatabase(fields []string, sources map[string]string) *geolib.Database {
	layout, err := geolib.NewRecordLayout(fields)
	suite.Require().NoError(err)

	files := []string{}

	for name, content := range sources {
		path := filepath.Join("/src", name)

		suite.Require().NoError(afero.WriteFile(suite.fs, path, []byte(content), 0o644))

		files = append(files, path)
	}

	b, err := builder.New(builder.Options{
		Fs:      suite.fs,
		DataDir: "/data",
		Layout:  layout,
	})
	suite.Require().NoError(err)

	_, err = b.Build(context.Background(), files)
	suite.Require().NoError(err)

	db := geolib.NewDatabase(geolib.DatabaseOptions{
		Fs:     suite.fs,
		Layout: layout,
	})

	suite.Require().NoError(db.Reload(b.Dir()))

	return db
}

func (suite *DatabaseTestSuite) countryDatabase() *geolib.Database {
	return suite.buildDatabase([]string{"country"}, map[string]string{
		"v4.csv": testSimpleV4CSV(),
		"v6.csv": testSimpleV6CSV,
	})
}

func (suite *DatabaseTestSuite) geocodeDatabase() *geolib.Database {
	return suite.buildDatabase([]string{"country", "latitude", "longitude"}, map[string]string{
		"GeoLite2-City-Locations-en.csv": testLocationsCSV,
		"GeoLite2-City-Blocks-IPv4.csv":  testBlocksV4CSV,
		"GeoLite2-City-Blocks-IPv6.csv":  testBlocksV6CSV,
	})
}
