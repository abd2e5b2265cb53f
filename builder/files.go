package builder

import (
	"path/filepath"
	"sort"
	"strings"
)

const (
	defaultLanguage = "en"

	locationsMarker = "Locations-"
	blocksV4Suffix  = "Blocks-IPv4.csv"
	blocksV6Suffix  = "Blocks-IPv6.csv"
	simpleV4Suffix  = "v4.csv"
	simpleV6Suffix  = "v6.csv"
)

// inputFiles is a classified set of build inputs.
type inputFiles struct {
	locations string
	localized string
	blocks    map[int]string
	simple    bool
}

func classifyFiles(files []string, language string) (inputFiles, error) {
	rv := inputFiles{
		blocks: map[int]string{},
	}
	simple := map[int]string{}

	files = append([]string{}, files...)
	sort.Strings(files)

	for _, path := range files {
		name := filepath.Base(path)

		switch {
		case !strings.HasSuffix(strings.ToLower(name), ".csv"):
		case strings.Contains(name, locationsMarker):
			lang := name[strings.Index(name, locationsMarker)+len(locationsMarker) : len(name)-len(".csv")]

			switch {
			case lang == defaultLanguage:
				rv.locations = path
			case strings.EqualFold(lang, language):
				rv.localized = path
			}
		case strings.HasSuffix(name, blocksV4Suffix):
			rv.blocks[4] = path
		case strings.HasSuffix(name, blocksV6Suffix):
			rv.blocks[6] = path
		case strings.HasSuffix(name, simpleV4Suffix):
			simple[4] = path
		case strings.HasSuffix(name, simpleV6Suffix):
			simple[6] = path
		}
	}

	switch {
	case len(rv.blocks) > 0 && len(simple) > 0:
		return rv, ErrMixedConventions
	case len(simple) > 0:
		rv.blocks = simple
		rv.simple = true
	case len(rv.blocks) == 0:
		return rv, ErrNoBlocks
	}

	return rv, nil
}
