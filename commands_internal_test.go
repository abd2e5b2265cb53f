package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/9seconds/iplocation/cdn"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
)

type CommandsTestSuite struct {
	BaseTestSuite
}

func (suite *CommandsTestSuite) decodeResults(buf *bytes.Buffer) []ResolveResult {
	decoder := json.NewDecoder(buf)
	rv := []ResolveResult{}

	for {
		value := ResolveResult{}

		err := decoder.Decode(&value)
		if err == io.EOF {
			return rv
		}

		suite.Require().NoError(err)

		rv = append(rv, value)
	}
}

func (suite *CommandsTestSuite) TestBuild() {
	suite.NoError(runBuild(suite.ctx, suite.fs, suite.conf, suite.log, false))
	suite.Contains(suite.logOutput.String(), "has checksum")
	suite.Contains(suite.logOutput.String(), `"event_name":"build"`)

	exists, err := afero.DirExists(suite.fs, suite.conf.GetDatabaseDir())

	suite.NoError(err)
	suite.True(exists)
}

func (suite *CommandsTestSuite) TestBuildIsReproducible() {
	first, err := runUpdate(suite.ctx, suite.fs, suite.conf, suite.log, false)
	suite.Require().NoError(err)

	second, err := runUpdate(suite.ctx, suite.fs, suite.conf, suite.log, false)
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.Len(first, 64)
}

func (suite *CommandsTestSuite) TestBuildWithoutSources() {
	suite.conf.Source.Dir = "/nothing"

	suite.Error(runBuild(suite.ctx, suite.fs, suite.conf, suite.log, false))
}

func (suite *CommandsTestSuite) TestLookup() {
	suite.buildDatabase()

	buf := &bytes.Buffer{}

	suite.NoError(runLookup(suite.fs, suite.conf, suite.log, buf,
		[]string{"8.8.8.8", "1.1.1.1", "invalid", "2607:f8b0::1"}))

	results := suite.decodeResults(buf)

	suite.Require().Len(results, 4)

	suite.Equal("8.8.8.8", results[0].IP)
	suite.Require().NotNil(results[0].Result)
	suite.Equal("US", results[0].Result.Country)
	suite.Equal("Mountain View", results[0].Result.City)
	suite.Require().NotNil(results[0].Result.Latitude)
	suite.InDelta(37.4223, *results[0].Result.Latitude, 1e-9)

	suite.Nil(results[1].Result)
	suite.Empty(results[1].Error)

	suite.Nil(results[2].Result)
	suite.Contains(results[2].Error, "invalid ip address")

	suite.Require().NotNil(results[3].Result)
	suite.Equal("US", results[3].Result.Country)
}

func (suite *CommandsTestSuite) TestLookupWithoutDatabase() {
	suite.Error(runLookup(suite.fs, suite.conf, suite.log, io.Discard, []string{"8.8.8.8"}))
}

func (suite *CommandsTestSuite) TestExport() {
	suite.buildDatabase()

	dir := filepath.Join(testCDNDir, testCDNGeocode)

	suite.NoError(runExport(suite.ctx, suite.fs, suite.conf, suite.log, "geocode", dir))
	suite.Contains(suite.logOutput.String(), "geocode dataset")

	for _, name := range []string{cdn.VersionFileName, cdn.IndexFileName(4), cdn.IndexFileName(6)} {
		exists, err := afero.Exists(suite.fs, filepath.Join(dir, name))

		suite.NoError(err)
		suite.True(exists, name)
	}
}

func (suite *CommandsTestSuite) TestExportUnknownKind() {
	suite.buildDatabase()

	suite.ErrorIs(runExport(suite.ctx, suite.fs, suite.conf, suite.log, "city", "/out"),
		cdn.ErrUnknownKind)
}

func (suite *CommandsTestSuite) TestServe() {
	suite.buildDatabase()

	suite.conf.Server.Listen = "127.0.0.1:0"
	suite.conf.Source.UpdateEvery.Duration = time.Hour

	suite.ctxCancel()

	suite.NoError(runServe(suite.ctx, suite.fs, suite.conf, suite.log))
	suite.Contains(suite.logOutput.String(), "server is stopped")
}

func (suite *CommandsTestSuite) TestServeWithoutDatabase() {
	suite.Error(runServe(suite.ctx, suite.fs, suite.conf, suite.log))
}

func TestCommands(t *testing.T) {
	suite.Run(t, &CommandsTestSuite{})
}
