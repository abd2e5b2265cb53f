package sources

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Source prepares CSV files in a directory and returns their paths.
type Source interface {
	Fetch(ctx context.Context, dir string) ([]string, error)
}

// Local is a directory with CSV files which were put there by somebody
// else.
type Local struct {
	Fs  afero.Fs
	Dir string
}

// Fetch returns CSV files of the directory. dir is ignored, files are
// used in place.
func (l Local) Fetch(ctx context.Context, _ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs := l.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	entries, err := afero.ReadDir(fs, l.Dir)
	if err != nil {
		return nil, err
	}

	files := []string{}

	for _, v := range entries {
		if !v.IsDir() && strings.EqualFold(filepath.Ext(v.Name()), ".csv") {
			files = append(files, filepath.Join(l.Dir, v.Name()))
		}
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	sort.Strings(files)

	return files, nil
}
