package geolib_test

import (
	"path/filepath"
	"testing"

	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
)

type GenerationTestSuite struct {
	suite.Suite

	fs afero.Fs
}

func (suite *GenerationTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()
}

func (suite *GenerationTestSuite) writeCurrent(content string) {
	suite.Require().NoError(afero.WriteFile(suite.fs, "/data/g/current", []byte(content), 0o644))
}

func (suite *GenerationTestSuite) TestNotBuilt() {
	_, err := geolib.CurrentDir(suite.fs, "/data/g")

	suite.ErrorIs(err, geolib.ErrNoDatabase)
}

func (suite *GenerationTestSuite) TestCurrent() {
	suite.writeCurrent("12\n")

	generation, err := geolib.CurrentGeneration(suite.fs, "/data/g")

	suite.NoError(err)
	suite.Equal(12, generation)

	dir, err := geolib.CurrentDir(suite.fs, "/data/g")

	suite.NoError(err)
	suite.Equal(filepath.Join("/data/g", "12"), dir)
}

func (suite *GenerationTestSuite) TestCorrupted() {
	for _, content := range []string{"", "v4", "-1", "0"} {
		content := content

		suite.Run(content, func() {
			suite.writeCurrent(content)

			_, err := geolib.CurrentGeneration(suite.fs, "/data/g")

			suite.ErrorIs(err, geolib.ErrCorruptedDatabase)
		})
	}
}

func TestGeneration(t *testing.T) {
	suite.Run(t, &GenerationTestSuite{})
}
