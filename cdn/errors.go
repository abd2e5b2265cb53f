package cdn

import "errors"

var (
	ErrUnknownKind       = errors.New("unknown export kind")
	ErrUnsupportedLayout = errors.New("database layout does not have fields required by export kind")

	// ErrCorruptedShard is returned if a size of the downloaded file
	// does not match a record size.
	ErrCorruptedShard = errors.New("shard is corrupted")
)
