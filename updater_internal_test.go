package main

import (
	"testing"
	"time"

	"github.com/9seconds/iplocation/builder"
	"github.com/9seconds/iplocation/geolib"
	"github.com/stretchr/testify/suite"
)

type UpdaterTestSuite struct {
	BaseTestSuite

	db      *geolib.Database
	stats   *usageStats
	updater *updater
}

func (suite *UpdaterTestSuite) SetupTest() {
	suite.BaseTestSuite.SetupTest()

	suite.conf.Source.UpdateEvery.Duration = time.Hour
	suite.db = suite.buildDatabase()
	suite.stats = &usageStats{}
	suite.updater = newUpdater(suite.ctx, suite.fs, suite.conf, suite.log, suite.db, suite.stats)

	suite.updater.Start()
}

func (suite *UpdaterTestSuite) TearDownTest() {
	suite.updater.Shutdown()
	suite.BaseTestSuite.TearDownTest()
}

func (suite *UpdaterTestSuite) TestNotChanged() {
	suite.NoError(suite.updater.doUpdate())
	suite.Contains(suite.logOutput.String(), "database is not changed")
	suite.Contains(suite.logOutput.String(), `"event_name":"update"`)

	generations, err := builder.Generations(suite.fs, suite.conf.GetDatabaseDir())

	suite.NoError(err)
	suite.Equal([]int{1}, generations)
}

func (suite *UpdaterTestSuite) TestUpdated() {
	data, err := suite.db.Lookup("1.1.1.1")

	suite.NoError(err)
	suite.Nil(data)

	suite.writeSource(testBlocksV4, testBlocksV4CSV+
		"1.1.1.0/24,2950159,2950159,,0,0,,52.5244,13.4105,100\n")

	suite.NoError(suite.updater.doUpdate())
	suite.Contains(suite.logOutput.String(), "database has been updated")
	suite.Equal(suite.updater.checksum, suite.stats.checksum)
	suite.NotEqual(suite.updater.checksum, "")

	data, err = suite.db.Lookup("1.1.1.1")

	suite.NoError(err)
	suite.Require().NotNil(data)
	suite.Equal("DE", data.Country)

	generations, err := builder.Generations(suite.fs, suite.conf.GetDatabaseDir())

	suite.NoError(err)
	suite.Equal([]int{2}, generations)
}

func (suite *UpdaterTestSuite) TestBrokenSources() {
	suite.writeSource(testLocations, "garbage")
	suite.writeSource(testBlocksV4, "garbage")

	suite.Error(suite.updater.doUpdate())

	data, err := suite.db.Lookup("8.8.8.8")

	suite.NoError(err)
	suite.Require().NotNil(data)
	suite.Equal("US", data.Country)
}

func TestUpdater(t *testing.T) {
	suite.Run(t, &UpdaterTestSuite{})
}
