package cdn

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/9seconds/iplocation/builder"
	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
)

// VersionFileName is a name of the file with a dataset version. It is
// written last, so its presence means that export is complete.
const VersionFileName = "version"

// IndexFileName returns a name of the top index for the IP version.
func IndexFileName(version int) string {
	return strconv.Itoa(version) + ".idx"
}

// BucketPath returns a slash-separated path of the bucket shard
// relative to the export root.
func BucketPath(version, bucket int) string {
	return strconv.Itoa(version) + "/" + geolib.NumberToDir(bucket)
}

// Export writes a loaded database into outDir as a set of static files
// for Client. Existing contents of outDir are removed. It returns a
// version of the exported dataset.
func Export(ctx context.Context, db *geolib.Database, kind Kind, fs afero.Fs, outDir string) (string, error) {
	if err := kind.validate(db.Layout()); err != nil {
		return "", err
	}

	if err := fs.RemoveAll(outDir); err != nil {
		return "", fmt.Errorf("cannot clean %s: %w", outDir, err)
	}

	if err := exportVersion(ctx, db, kind, geolib.IPv4Codec, fs, outDir); err != nil {
		return "", fmt.Errorf("cannot export ipv4: %w", err)
	}

	if err := exportVersion(ctx, db, kind, geolib.IPv6Codec, fs, outDir); err != nil {
		return "", fmt.Errorf("cannot export ipv6: %w", err)
	}

	version, err := builder.Checksum(fs, outDir)
	if err != nil {
		return "", fmt.Errorf("cannot calculate a version: %w", err)
	}

	if err := afero.WriteFile(fs, filepath.Join(outDir, VersionFileName), []byte(version), 0o644); err != nil {
		return "", fmt.Errorf("cannot write a version file: %w", err)
	}

	return version, nil
}

func exportVersion[K any](ctx context.Context, db *geolib.Database, kind Kind,
	codec geolib.KeyCodec[K], fs afero.Fs, outDir string) error {
	var (
		starts   []K
		ends     []K
		payloads []byte
	)

	err := db.Ranges(codec.Version, func(rng geolib.Range) error {
		starts = append(starts, codec.FromAddress(rng.Start))
		ends = append(ends, codec.FromAddress(rng.End))
		payloads = kind.appendPayload(payloads, rng.Data)

		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot read ranges: %w", err)
	}

	lines := len(starts)
	if lines == 0 {
		return nil
	}

	bucketDir := filepath.Join(outDir, strconv.Itoa(codec.Version))
	if err := fs.MkdirAll(bucketDir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", bucketDir, err)
	}

	buckets := min(kind.Buckets(), lines)
	payloadSize := kind.PayloadSize()
	index := make([]byte, buckets*codec.Size)

	for i := 0; i < buckets; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		from := lines * i / buckets
		to := lines * (i + 1) / buckets
		count := to - from
		shard := make([]byte, count*(2*codec.Size+payloadSize))

		codec.Put(index[i*codec.Size:], starts[from])

		for j := 0; j < count; j++ {
			codec.Put(shard[j*codec.Size:], starts[from+j])
			codec.Put(shard[(count+j)*codec.Size:], ends[from+j])
		}

		copy(shard[2*count*codec.Size:], payloads[from*payloadSize:to*payloadSize])

		path := filepath.Join(bucketDir, geolib.NumberToDir(i))
		if err := afero.WriteFile(fs, path, shard, 0o644); err != nil {
			return fmt.Errorf("cannot write %s: %w", path, err)
		}
	}

	path := filepath.Join(outDir, IndexFileName(codec.Version))
	if err := afero.WriteFile(fs, path, index, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}

	return nil
}
