package geolib_test

import (
	"testing"

	"github.com/9seconds/iplocation/geolib"
	"github.com/stretchr/testify/suite"
)

type RecordLayoutTestSuite struct {
	suite.Suite
}

func (suite *RecordLayoutTestSuite) TestCountryOnly() {
	layout, err := geolib.NewRecordLayout([]string{"country"})

	suite.NoError(err)
	suite.True(layout.CountryOnly())
	suite.False(layout.LocationFile())
	suite.False(layout.NeedsDictionaries())
	suite.Equal(geolib.DataTypeCountry, layout.DataType())
	suite.Equal(2, layout.MainRecordSize())
	suite.Equal(0, layout.LocationRecordSize())
	suite.Equal("g", layout.Signature())
}

func (suite *RecordLayoutTestSuite) TestCityAndCountry() {
	layout, err := geolib.NewRecordLayout([]string{"city", "country"})

	suite.NoError(err)
	suite.False(layout.CountryOnly())
	suite.True(layout.LocationFile())
	suite.Equal(geolib.DataTypeCity, layout.DataType())
	suite.Equal(4, layout.MainRecordSize())
	suite.Equal(6, layout.LocationRecordSize())
	suite.Equal(0, layout.Offset(geolib.FieldCountry))
	suite.Equal(2, layout.Offset(geolib.FieldCity))
	suite.Equal("1lc", layout.Signature())
	suite.Equal("country,city", layout.String())
}

func (suite *RecordLayoutTestSuite) TestAll() {
	layout, err := geolib.NewRecordLayout([]string{"all"})

	suite.NoError(err)
	suite.True(layout.LocationFile())
	suite.True(layout.NeedsDictionaries())
	suite.Equal(18, layout.MainRecordSize())
	suite.Equal(18, layout.LocationRecordSize())
	suite.Equal(4, layout.Offset(geolib.FieldLatitude))
	suite.Equal(8, layout.Offset(geolib.FieldLongitude))
	suite.Equal(12, layout.Offset(geolib.FieldPostcode))
	suite.Equal(17, layout.Offset(geolib.FieldArea))
	suite.Equal(14, layout.Offset(geolib.FieldCity))
	suite.Equal("6bj", layout.Signature())
	suite.Len(layout.Fields(), 13)
}

func (suite *RecordLayoutTestSuite) TestInlineOnly() {
	layout, err := geolib.NewRecordLayout([]string{"longitude", "latitude"})

	suite.NoError(err)
	suite.False(layout.LocationFile())
	suite.Equal(8, layout.MainRecordSize())
	suite.Equal(0, layout.Offset(geolib.FieldLatitude))
	suite.Equal(4, layout.Offset(geolib.FieldLongitude))
}

func (suite *RecordLayoutTestSuite) TestEUBringsCountry() {
	layout, err := geolib.NewRecordLayout([]string{"eu"})

	suite.NoError(err)
	suite.True(layout.Has(geolib.FieldCountry))
	suite.True(layout.LocationFile())
	suite.Equal(4, layout.MainRecordSize())
	suite.Equal(2, layout.LocationRecordSize())
}

func (suite *RecordLayoutTestSuite) TestErrors() {
	_, err := geolib.NewRecordLayout([]string{"country", "foo"})

	suite.ErrorIs(err, geolib.ErrUnknownField)

	_, err = geolib.NewRecordLayout(nil)

	suite.ErrorIs(err, geolib.ErrNoFields)
}

func (suite *RecordLayoutTestSuite) TestShardGeometry() {
	layout, _ := geolib.NewRecordLayout([]string{"country"})
	geometry := layout.ShardGeometry(4, 4096)

	suite.Equal(6, geometry.RecordSize)
	suite.Equal(682, geometry.FileLineMax)
	suite.Equal(682*geolib.ShardFilesPerFolder, geometry.FolderLineMax)

	folder, file, offset := geometry.Locate(0)

	suite.Equal("_0", folder)
	suite.Equal("_0", file)
	suite.Equal(0, offset)

	folder, file, offset = geometry.Locate(683)

	suite.Equal("_0", folder)
	suite.Equal("_1", file)
	suite.Equal(6, offset)

	folder, file, _ = geometry.Locate(geometry.FolderLineMax + 1)

	suite.Equal("_1", folder)
	suite.Equal("_0", file)
}

func (suite *RecordLayoutTestSuite) TestShardGeometryTinyFile() {
	layout, _ := geolib.NewRecordLayout([]string{"country"})
	geometry := layout.ShardGeometry(6, 1)

	suite.Equal(18, geometry.RecordSize)
	suite.Equal(1, geometry.FileLineMax)
	suite.Equal(geolib.ShardFilesPerFolder, geometry.FolderLineMax)
}

func TestRecordLayout(t *testing.T) {
	suite.Run(t, &RecordLayoutTestSuite{})
}
