package geolib

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// DatabaseOptions configures Database.
type DatabaseOptions struct {
	// Fs is a filesystem to read database files from. If nil, OS
	// filesystem is used.
	Fs afero.Fs

	Layout RecordLayout

	// SmallMemory keeps only range starts in memory. Ends and
	// payloads are read from shard files on each query.
	SmallMemory   bool
	ShardFileSize int

	// ShardCacheSize is a number of shard records to keep in LRU
	// cache. 0 disables the cache.
	ShardCacheSize int

	// CountryInfo enriches results with country metadata. Optional.
	CountryInfo CountryInfo

	Logger Logger
}

// Database is a handle to a loaded binary database. It is safe for
// concurrent use. Reload and Clear swap the whole state with a single
// atomic store so queries never observe a half-loaded state.
type Database struct {
	fs             afero.Fs
	layout         RecordLayout
	smallMemory    bool
	shardFileSize  int
	shardCacheSize int
	countryInfo    CountryInfo
	logger         Logger

	state atomic.Pointer[databaseState]
}

type databaseState struct {
	layout    RecordLayout
	v4        *table[uint32]
	v6        *table[Uint128]
	locations []byte
	names     []byte
	sub       SubTables
}

func (d *Database) Layout() RecordLayout {
	return d.layout
}

// Reload reads database files from dir (a generation directory, see
// CurrentDir) and replaces the current state. If loading fails, the
// current state is kept.
func (d *Database) Reload(dir string) error {
	state := &databaseState{
		layout: d.layout,
	}
	loader := tableLoader{
		fs:            d.fs,
		dir:           dir,
		layout:        d.layout,
		smallMemory:   d.smallMemory,
		shardFileSize: d.shardFileSize,
		cacheSize:     d.shardCacheSize,
	}
	group := &errgroup.Group{}

	group.Go(func() (err error) {
		state.v4, err = loadTable(loader, IPv4Codec)

		return
	})

	group.Go(func() (err error) {
		state.v6, err = loadTable(loader, IPv6Codec)

		return
	})

	if d.layout.LocationFile() {
		group.Go(func() (err error) {
			state.locations, err = d.readFile(dir, LocationFileName)

			return
		})
	}

	if d.layout.Has(FieldCity) {
		group.Go(func() (err error) {
			state.names, err = d.readFile(dir, NameFileName)

			return
		})
	}

	if d.layout.NeedsDictionaries() {
		group.Go(func() error {
			content, err := d.readFile(dir, SubFileName)
			if err != nil {
				return err
			}

			if err := json.Unmarshal(content, &state.sub); err != nil {
				return fmt.Errorf("cannot parse %s: %w", SubFileName, err)
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("cannot load database from %s: %w", dir, err)
	}

	if size := d.layout.LocationRecordSize(); size > 0 && len(state.locations)%size != 0 {
		return fmt.Errorf("location table size is not aligned to %d: %w", size, ErrCorruptedDatabase)
	}

	d.state.Store(state)

	return nil
}

// Clear drops the loaded state. Queries return 'not found' until the
// next Reload. Queries which are in flight keep using the previous
// state until they finish.
func (d *Database) Clear() {
	d.state.Store(nil)
}

// Len returns a number of stored ranges for the given IP version.
func (d *Database) Len(version int) int {
	state := d.state.Load()

	switch {
	case state == nil:
		return 0
	case version == 4:
		return state.v4.Len()
	}

	return state.v6.Len()
}

// Lookup resolves an IP address. It returns nil without error if
// nothing is found. Malformed input returns ErrInvalidAddress.
//
// A location id of the payload has to point into the location table
// which was built together with it. Databases which break this rule
// are not supported.
func (d *Database) Lookup(ip string) (*GeoData, error) {
	addr, err := ParseIP(ip)

	switch {
	case errors.Is(err, ErrAddressOutOfRange):
		return nil, nil
	case err != nil:
		return nil, err
	}

	return d.LookupAddress(addr)
}

func (d *Database) LookupAddress(addr Address) (*GeoData, error) {
	state := d.state.Load()
	if state == nil {
		return nil, nil
	}

	var (
		payload []byte
		found   bool
		err     error
	)

	if addr.Version == 4 {
		payload, found, err = state.v4.lookup(addr.V4)
	} else {
		payload, found, err = state.v6.lookup(addr.V6)
	}

	switch {
	case err != nil:
		d.logger.LookupError(addr.String(), err)

		return nil, fmt.Errorf("cannot lookup %s: %w", addr, err)
	case !found:
		return nil, nil
	}

	data := state.decode(payload)

	d.enrich(data)

	return data, nil
}

// Ranges calls fn for every stored range of the given IP version in
// ascending order. Payloads are decoded but not enriched.
func (d *Database) Ranges(version int, fn func(Range) error) error {
	state := d.state.Load()

	switch {
	case state == nil:
		return nil
	case version == 4:
		return iterateTable(state, state.v4, fn)
	}

	return iterateTable(state, state.v6, fn)
}

func (d *Database) enrich(data *GeoData) {
	if d.countryInfo == nil || data.Country == "" {
		return
	}

	details, ok := d.countryInfo.Lookup(data.Country)
	if !ok {
		return
	}

	data.CountryName = details.Name
	data.CountryNative = details.Native
	data.Continent = details.Continent
	data.ContinentName = details.ContinentName
	data.Capital = details.Capital
	data.Phone = details.Phone
	data.Currency = details.Currency
	data.Languages = details.Languages
}

func (d *Database) readFile(dir, name string) ([]byte, error) {
	path := filepath.Join(dir, name)

	content, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	return content, nil
}

func iterateTable[K any](state *databaseState, t *table[K], fn func(Range) error) error {
	for i := 0; i < t.Len(); i++ {
		end, payload, err := t.line(i)
		if err != nil {
			return fmt.Errorf("cannot read line %d: %w", i, err)
		}

		rng := Range{
			Start: t.codec.ToAddress(t.starts[i]),
			End:   t.codec.ToAddress(end),
			Data:  state.decode(payload),
		}

		if err := fn(rng); err != nil {
			return err
		}
	}

	return nil
}

// NewDatabase creates an empty database. Call Reload to load data.
func NewDatabase(opts DatabaseOptions) *Database {
	db := &Database{
		fs:             opts.Fs,
		layout:         opts.Layout,
		smallMemory:    opts.SmallMemory,
		shardFileSize:  opts.ShardFileSize,
		shardCacheSize: opts.ShardCacheSize,
		countryInfo:    opts.CountryInfo,
		logger:         opts.Logger,
	}

	if db.fs == nil {
		db.fs = afero.NewOsFs()
	}

	if db.shardFileSize <= 0 {
		db.shardFileSize = DefaultShardFileSize
	}

	if db.logger == nil {
		db.logger = NoopLogger{}
	}

	return db
}
