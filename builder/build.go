package builder

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// build is a state of a single Build call.
type build struct {
	fs            afero.Fs
	dir           string
	layout        geolib.RecordLayout
	logger        geolib.Logger
	smallMemory   bool
	shardFileSize int
	sinkBuffer    int
	simple        bool

	locations     locationMap
	locationOrder []*location
	areas         *dictionary
}

// locationID assigns ids lazily, on the first range which refers to
// the location. So the location table has only referenced rows.
func (b *build) locationID(loc *location) uint32 {
	if loc.id == 0 {
		b.locationOrder = append(b.locationOrder, loc)
		loc.id = uint32(len(b.locationOrder))
	}

	return loc.id
}

func (b *build) path(name string) string {
	return filepath.Join(b.dir, name)
}

func (b *build) newQueue() queue {
	return make(queue, b.sinkBuffer)
}

func (b *build) newRangeWriter(version int) (*rangeWriter, error) {
	writer := &rangeWriter{
		starts: &streamSink{
			fs:    b.fs,
			path:  b.path(geolib.StartsFileName(version)),
			queue: b.newQueue(),
		},
	}

	if !b.smallMemory {
		writer.ends = &streamSink{
			fs:    b.fs,
			path:  b.path(geolib.EndsFileName(version)),
			queue: b.newQueue(),
		}
		writer.payloads = &streamSink{
			fs:    b.fs,
			path:  b.path(geolib.PayloadFileName(version)),
			queue: b.newQueue(),
		}

		return writer, nil
	}

	dir := b.path(geolib.ShardDirName(version))

	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", dir, err)
	}

	writer.shards = &shardSink{
		fs:       b.fs,
		dir:      dir,
		geometry: b.layout.ShardGeometry(version, b.shardFileSize),
		queue:    b.newQueue(),
	}

	return writer, nil
}

// runBlocks runs a block pass for a single IP version. A CSV producer
// and every sink work in their own goroutines. The first error cancels
// the rest of them.
func runBlocks[K any](ctx context.Context, b *build, codec geolib.KeyCodec[K], path string) (int, error) {
	writer, err := b.newRangeWriter(codec.Version)
	if err != nil {
		return 0, err
	}

	pass := &blockPass[K]{
		build:  b,
		codec:  codec,
		path:   path,
		writer: writer,
	}
	group, groupCtx := errgroup.WithContext(ctx)

	for _, v := range writer.Sinks() {
		v := v

		group.Go(v.Run)
	}

	group.Go(func() error {
		defer writer.Close()

		return pass.Run(groupCtx)
	})

	if err := group.Wait(); err != nil {
		return 0, fmt.Errorf("cannot process IPv%d blocks: %w", codec.Version, err)
	}

	return pass.lines, nil
}

func (b *build) writeLocationTable(source string) error {
	table := newLocationTable(b.layout, b.logger, source)

	for _, loc := range b.locationOrder {
		table.Add(loc)
	}

	if err := afero.WriteFile(b.fs, b.path(geolib.LocationFileName), table.records, 0o644); err != nil {
		return fmt.Errorf("cannot write a location table: %w", err)
	}

	if b.layout.Has(geolib.FieldCity) {
		if err := afero.WriteFile(b.fs, b.path(geolib.NameFileName), table.names.Bytes(), 0o644); err != nil {
			return fmt.Errorf("cannot write city names: %w", err)
		}
	}

	return b.writeSubTables(table)
}

// writeSubTables persists dictionaries. Area is an inline field, so
// a database may need them even if it has no location table.
func (b *build) writeSubTables(table *locationTable) error {
	if !b.layout.NeedsDictionaries() {
		return nil
	}

	sub := geolib.SubTables{}

	if table != nil {
		sub = table.SubTables()
	}

	if b.layout.Has(geolib.FieldArea) {
		values := b.areas.Values()
		sub.Area = make([]int, len(values))

		for i, v := range values {
			sub.Area[i], _ = strconv.Atoi(v)
		}
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("cannot serialize dictionaries: %w", err)
	}

	if err := afero.WriteFile(b.fs, b.path(geolib.SubFileName), data, 0o644); err != nil {
		return fmt.Errorf("cannot write dictionaries: %w", err)
	}

	return nil
}

func putUint32(buf []byte, offset int, value uint32) {
	binary.LittleEndian.PutUint32(buf[offset:], value)
}
