package builder

import "errors"

var (
	ErrNoBlocks         = errors.New("no block files are found")
	ErrNoLocations      = errors.New("location file is required for requested fields")
	ErrMixedConventions = errors.New("simplified and geoname block files cannot be mixed")
	ErrCountryOnlyInput = errors.New("simplified block files can build only a country database")
	ErrMissingColumn    = errors.New("required column is missing")
)
