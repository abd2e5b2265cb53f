package main

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
)

const (
	testLocationsCSV = "geoname_id,locale_code,continent_code,continent_name," +
		"country_iso_code,country_name,subdivision_1_iso_code,subdivision_1_name," +
		"subdivision_2_iso_code,subdivision_2_name,city_name,metro_code,time_zone," +
		"is_in_european_union\n" +
		`5375480,en,NA,"North America",US,"United States",CA,California,,,"Mountain View",807,America/Los_Angeles,0` + "\n" +
		`2950159,en,EU,Europe,DE,Germany,BE,"Land Berlin",,,Berlin,,Europe/Berlin,1` + "\n"
	testBlocksHeader = "network,geoname_id,registered_country_geoname_id," +
		"represented_country_geoname_id,is_anonymous_proxy,is_satellite_provider," +
		"postal_code,latitude,longitude,accuracy_radius\n"
	testBlocksV4CSV = testBlocksHeader +
		"8.8.8.0/24,5375480,5375480,,0,0,94043,37.4223,-122.085,1000\n" +
		"81.0.0.0/16,2950159,2950159,,0,0,10115,52.5244,13.4105,100\n"
	testBlocksV6CSV = testBlocksHeader +
		"2607:f8b0::/32,5375480,5375480,,0,0,94043,37.4223,-122.085,1000\n"

	testSourceDir   = "/src"
	testLocations   = "GeoLite2-City-Locations-en.csv"
	testBlocksV4    = "GeoLite2-City-Blocks-IPv4.csv"
	testBlocksV6    = "GeoLite2-City-Blocks-IPv6.csv"
	testCDNDir      = "/cdn"
	testCDNCountry  = "country"
	testCDNGeocode  = "geocode"
	testBasicAuthID = "user"
)

type BaseTestSuite struct {
	suite.Suite

	fs        afero.Fs
	conf      *config
	logOutput *bytes.Buffer
	log       *logger
	ctx       context.Context
	ctxCancel context.CancelFunc
}

func (suite *BaseTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()

	suite.writeSource(testLocations, testLocationsCSV)
	suite.writeSource(testBlocksV4, testBlocksV4CSV)
	suite.writeSource(testBlocksV6, testBlocksV6CSV)

	suite.conf = &config{
		DataDir: "/data",
		TmpDir:  "/tmp",
		Fields:  []string{"country", "latitude", "longitude", "city"},
		Source: configSource{
			Dir: testSourceDir,
		},
		Server: configServer{
			CDNDir: testCDNDir,
		},
	}

	suite.Require().NoError(validateConfig(suite.conf))

	suite.logOutput = &bytes.Buffer{}
	suite.log = newLoggerTo(suite.logOutput, false)
	suite.ctx, suite.ctxCancel = context.WithCancel(context.Background())
}

func (suite *BaseTestSuite) TearDownTest() {
	suite.ctxCancel()
}

func (suite *BaseTestSuite) writeSource(name, content string) {
	path := filepath.Join(testSourceDir, name)

	suite.Require().NoError(afero.WriteFile(suite.fs, path, []byte(content), 0o644))
}

func (suite *BaseTestSuite) buildDatabase() *geolib.Database {
	suite.Require().NoError(runBuild(suite.ctx, suite.fs, suite.conf, suite.log, false))

	db, err := openDatabase(suite.fs, suite.conf, suite.log)
	suite.Require().NoError(err)

	return db
}
