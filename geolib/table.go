package geolib

import (
	"fmt"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/afero"
)

// table is a set of columns for a single IP version.
type table[K any] struct {
	codec      KeyCodec[K]
	starts     []K
	ends       []K
	payload    []byte
	recordSize int
	shards     *shardReader
}

func (t *table[K]) Len() int {
	if t == nil {
		return 0
	}

	return len(t.starts)
}

func (t *table[K]) find(key K) (int, bool) {
	if len(t.starts) == 0 || t.codec.Cmp(key, t.starts[0]) < 0 {
		return 0, false
	}

	return BinarySearch(t.starts, key, t.codec.Cmp)
}

// line returns end and payload of the given line.
func (t *table[K]) line(i int) (K, []byte, error) {
	if t.shards == nil {
		return t.ends[i], t.payload[i*t.recordSize : (i+1)*t.recordSize], nil
	}

	record, err := t.shards.read(i)
	if err != nil {
		var zero K

		return zero, nil, err
	}

	return t.codec.Read(record), record[t.codec.Size:], nil
}

// lookup returns a payload of the range which contains key.
func (t *table[K]) lookup(key K) ([]byte, bool, error) {
	if t == nil {
		return nil, false, nil
	}

	idx, ok := t.find(key)
	if !ok {
		return nil, false, nil
	}

	end, payload, err := t.line(idx)

	switch {
	case err != nil:
		return nil, false, err
	case t.codec.Cmp(key, end) > 0:
		return nil, false, nil
	}

	return payload, true, nil
}

type shardReader struct {
	fs       afero.Fs
	dir      string
	geometry ShardGeometry
	cache    *lru.Cache
}

func (s *shardReader) read(line int) ([]byte, error) {
	if s.cache != nil {
		if value, ok := s.cache.Get(line); ok {
			return value.([]byte), nil
		}
	}

	folder, file, offset := s.geometry.Locate(line)
	path := filepath.Join(s.dir, folder, file)

	fp, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open shard %s: %w", path, err)
	}

	defer fp.Close()

	buf := make([]byte, s.geometry.RecordSize)

	if _, err := fp.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("cannot read shard %s at %d: %w", path, offset, err)
	}

	if s.cache != nil {
		s.cache.Add(line, buf)
	}

	return buf, nil
}

type tableLoader struct {
	fs            afero.Fs
	dir           string
	layout        RecordLayout
	smallMemory   bool
	shardFileSize int
	cacheSize     int
}

func loadTable[K any](loader tableLoader, codec KeyCodec[K]) (*table[K], error) {
	startsPath := filepath.Join(loader.dir, StartsFileName(codec.Version))

	rawStarts, err := afero.ReadFile(loader.fs, startsPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", startsPath, err)
	}

	rv := &table[K]{
		codec:      codec,
		starts:     codec.DecodeKeys(rawStarts),
		recordSize: loader.layout.MainRecordSize(),
	}

	if loader.smallMemory {
		rv.shards = &shardReader{
			fs:       loader.fs,
			dir:      filepath.Join(loader.dir, ShardDirName(codec.Version)),
			geometry: loader.layout.ShardGeometry(codec.Version, loader.shardFileSize),
		}

		if loader.cacheSize > 0 {
			cache, err := lru.New(loader.cacheSize)
			if err != nil {
				return nil, fmt.Errorf("cannot create a shard cache: %w", err)
			}

			rv.shards.cache = cache
		}

		return rv, nil
	}

	endsPath := filepath.Join(loader.dir, EndsFileName(codec.Version))

	rawEnds, err := afero.ReadFile(loader.fs, endsPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", endsPath, err)
	}

	payloadPath := filepath.Join(loader.dir, PayloadFileName(codec.Version))

	rv.payload, err = afero.ReadFile(loader.fs, payloadPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", payloadPath, err)
	}

	rv.ends = codec.DecodeKeys(rawEnds)

	if len(rv.ends) != len(rv.starts) || len(rv.payload) != len(rv.starts)*rv.recordSize {
		return nil, fmt.Errorf("ipv%d columns have different lengths: %w",
			codec.Version, ErrCorruptedDatabase)
	}

	return rv, nil
}
