package sources

import "errors"

var (
	// ErrNothingToDo is returned if upstream files are the same as
	// ones fetched last time.
	ErrNothingToDo = errors.New("sources have not changed")

	ErrLicenseKeyIsRequired = errors.New("license key is required")
	ErrNoFiles              = errors.New("cannot find csv files")
	ErrChecksumMismatch     = errors.New("checksum mismatch")
	ErrBadChecksumFormat    = errors.New("incorrect checksum format")
)
