package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
)

// Checksum returns a hash of a directory with database files. It
// covers relative paths and contents of every file, so 2 builds from
// the same sources with the same fields have the same checksum.
// Temporary files are skipped.
func Checksum(fs afero.Fs, dir string) (string, error) {
	hasher := sha256.New()
	newFileSign := []byte{0}
	fileContentsSign := []byte{1}

	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		switch {
		case err != nil:
			return err
		case info.IsDir(), strings.HasSuffix(path, geolib.TempSuffix):
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("cannot build a relative path of %s to %s: %w", path, dir, err)
		}

		hasher.Write(newFileSign)                       // nolint: errcheck
		hasher.Write([]byte(filepath.ToSlash(relPath))) // nolint: errcheck
		hasher.Write(fileContentsSign)                  // nolint: errcheck

		fp, err := fs.Open(path)
		if err != nil {
			return fmt.Errorf("cannot open a file %s: %w", path, err)
		}

		defer fp.Close()

		if _, err := io.Copy(hasher, fp); err != nil {
			return fmt.Errorf("cannot copy a file contents of %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cannot traverse directory %s: %w", dir, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
