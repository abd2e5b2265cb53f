package builder

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strconv"

	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
)

// Generations returns numbers of generation directories of layoutDir in
// ascending order.
func Generations(filesystem afero.Fs, layoutDir string) ([]int, error) {
	infos, err := afero.ReadDir(filesystem, layoutDir)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("cannot list %s: %w", layoutDir, err)
	}

	rv := []int{}

	for _, info := range infos {
		if !info.IsDir() {
			continue
		}

		if generation, err := strconv.Atoi(info.Name()); err == nil && generation > 0 {
			rv = append(rv, generation)
		}
	}

	sort.Ints(rv)

	return rv, nil
}

// Prune removes all generations of layoutDir except given ones. It has
// to be called only when none of removed generations is in use.
func Prune(filesystem afero.Fs, layoutDir string, keep ...int) error {
	generations, err := Generations(filesystem, layoutDir)
	if err != nil {
		return err
	}

	for _, generation := range generations {
		if slices.Contains(keep, generation) {
			continue
		}

		dir := geolib.GenerationDir(layoutDir, generation)

		if err := filesystem.RemoveAll(dir); err != nil {
			return fmt.Errorf("cannot remove %s: %w", dir, err)
		}
	}

	return nil
}

// publish atomically switches a current generation of layoutDir.
func publish(filesystem afero.Fs, layoutDir string, generation int) error {
	path := filepath.Join(layoutDir, geolib.CurrentFileName)

	err := afero.WriteFile(filesystem, path+geolib.TempSuffix, []byte(strconv.Itoa(generation)+"\n"), 0o644)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}

	if err := filesystem.Rename(path+geolib.TempSuffix, path); err != nil {
		return fmt.Errorf("cannot publish generation %d: %w", generation, err)
	}

	return nil
}
