package geolib

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const (
	// ShardFilesPerFolder is a maximal number of shard files in a
	// single folder in small memory mode.
	ShardFilesPerFolder = 1024

	// DefaultShardFileSize is a default threshold of a shard file
	// size in bytes.
	DefaultShardFileSize = 4096

	LocationFileName = "location.dat"
	NameFileName     = "name.dat"
	SubFileName      = "sub.json"

	// CurrentFileName is a file in a layout directory which holds a
	// name of the published generation.
	CurrentFileName = "current"

	// TempSuffix marks files which are not finalized yet.
	TempSuffix = ".tmp"
)

// StartsFileName returns a name of the file with range starts.
func StartsFileName(version int) string {
	return strconv.Itoa(version) + "-1.dat"
}

// EndsFileName returns a name of the file with range ends.
func EndsFileName(version int) string {
	return strconv.Itoa(version) + "-2.dat"
}

// PayloadFileName returns a name of the file with payload records.
func PayloadFileName(version int) string {
	return strconv.Itoa(version) + "-3.dat"
}

// ShardDirName returns a name of the directory with shards of small
// memory mode.
func ShardDirName(version int) string {
	return "v" + strconv.Itoa(version)
}

// LayoutDir is a directory where generations of a database of the
// given layout are stored. Each build writes a new generation into its
// own subdirectory, so files of a database which is in use are never
// changed.
func LayoutDir(dataDir string, layout RecordLayout) string {
	return filepath.Join(dataDir, layout.Signature())
}

// GenerationDir is a directory of the given generation.
func GenerationDir(layoutDir string, generation int) string {
	return filepath.Join(layoutDir, strconv.Itoa(generation))
}

// CurrentGeneration returns a number of the published generation. It
// returns ErrNoDatabase if nothing was published yet.
func CurrentGeneration(filesystem afero.Fs, layoutDir string) (int, error) {
	content, err := afero.ReadFile(filesystem, filepath.Join(layoutDir, CurrentFileName))

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return 0, fmt.Errorf("%s: %w", layoutDir, ErrNoDatabase)
	case err != nil:
		return 0, fmt.Errorf("cannot read a current generation of %s: %w", layoutDir, err)
	}

	generation, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil || generation <= 0 {
		return 0, fmt.Errorf("incorrect generation %q in %s: %w", content, layoutDir, ErrCorruptedDatabase)
	}

	return generation, nil
}

// CurrentDir returns a directory of the published generation.
func CurrentDir(filesystem afero.Fs, layoutDir string) (string, error) {
	generation, err := CurrentGeneration(filesystem, layoutDir)
	if err != nil {
		return "", err
	}

	return GenerationDir(layoutDir, generation), nil
}
