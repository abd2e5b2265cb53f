package builder

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/9seconds/iplocation/geolib"
	"github.com/spf13/afero"
)

// DefaultSinkBuffer is a default number of records which can wait in a
// queue of each output file.
const DefaultSinkBuffer = 4096

// Options configure Builder.
type Options struct {
	// Fs is a filesystem for both inputs and outputs. If nil, OS
	// filesystem is used.
	Fs afero.Fs

	// DataDir is a root directory. Generations of a database are
	// written into its subdirectory named after a signature of the
	// layout.
	DataDir string
	Layout  geolib.RecordLayout

	// Language is a language of display names. Names are taken from
	// Locations-<Language>.csv if it is present.
	Language string

	SmallMemory   bool
	ShardFileSize int
	SinkBuffer    int

	Logger geolib.Logger
}

// Builder makes binary databases from CSV files. It is not safe to run
// concurrent builds of the same layout in the same data directory.
type Builder struct {
	fs            afero.Fs
	dir           string
	layout        geolib.RecordLayout
	language      string
	smallMemory   bool
	shardFileSize int
	sinkBuffer    int
	logger        geolib.Logger
}

// Dir returns a directory of the published generation. It is empty
// if nothing was published yet.
func (b *Builder) Dir() string {
	dir, _ := geolib.CurrentDir(b.fs, b.dir)

	return dir
}

// LayoutDir is a directory with all generations of the database.
func (b *Builder) LayoutDir() string {
	return b.dir
}

// Build makes a new generation of the database from given CSV files,
// publishes it and returns its checksum. Files which are not relevant
// are ignored. If the result is identical to the published generation,
// nothing is changed.
//
// A previous generation is kept because it may be still in use by a
// running Database until it is reloaded. Older ones are removed.
func (b *Builder) Build(ctx context.Context, files []string) (string, error) {
	inputs, err := classifyFiles(files, b.language)
	if err != nil {
		return "", err
	}

	if inputs.simple && !b.layout.CountryOnly() {
		return "", ErrCountryOnlyInput
	}

	current, err := geolib.CurrentGeneration(b.fs, b.dir)
	if err != nil && !errors.Is(err, geolib.ErrNoDatabase) {
		return "", err
	}

	generation := current + 1
	dir := geolib.GenerationDir(b.dir, generation)

	// leftovers of a build which was interrupted
	if err := b.fs.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("cannot cleanup %s: %w", dir, err)
	}

	checksum, err := b.build(ctx, dir, inputs)
	if err != nil {
		b.fs.RemoveAll(dir) // nolint: errcheck

		return "", err
	}

	if current > 0 {
		currentChecksum, err := Checksum(b.fs, geolib.GenerationDir(b.dir, current))
		if err == nil && currentChecksum == checksum {
			b.fs.RemoveAll(dir) // nolint: errcheck
			b.logger.BuildInfo("finalize", "database is not changed, checksum "+checksum)

			return checksum, nil
		}
	}

	if err := publish(b.fs, b.dir, generation); err != nil {
		return "", err
	}

	if err := Prune(b.fs, b.dir, current, generation); err != nil {
		return "", err
	}

	b.logger.BuildInfo("finalize", "database "+dir+" is published, checksum "+checksum)

	return checksum, nil
}

// build writes all database files into dir. IPv4 and IPv6 files are
// processed one by one because location ids and area dictionary are
// shared between them.
func (b *Builder) build(ctx context.Context, dir string, inputs inputFiles) (string, error) {
	run := &build{
		fs:            b.fs,
		dir:           dir,
		layout:        b.layout,
		logger:        b.logger,
		smallMemory:   b.smallMemory,
		shardFileSize: b.shardFileSize,
		sinkBuffer:    b.sinkBuffer,
		simple:        inputs.simple,
		areas:         newDictionary(),
	}

	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}

	if err := b.loadLocations(ctx, run, inputs); err != nil {
		return "", err
	}

	lines, err := runBlocks(ctx, run, geolib.IPv4Codec, inputs.blocks[4])
	if err != nil {
		return "", err
	}

	b.logger.BuildInfo("blocks", "IPv4 ranges: "+strconv.Itoa(lines))

	lines, err = runBlocks(ctx, run, geolib.IPv6Codec, inputs.blocks[6])
	if err != nil {
		return "", err
	}

	b.logger.BuildInfo("blocks", "IPv6 ranges: "+strconv.Itoa(lines))

	if b.layout.LocationFile() {
		if err := run.writeLocationTable(inputs.locations); err != nil {
			return "", err
		}

		b.logger.BuildInfo("locations", "location records: "+strconv.Itoa(len(run.locationOrder)))
	} else if err := run.writeSubTables(nil); err != nil {
		return "", err
	}

	checksum, err := Checksum(b.fs, dir)
	if err != nil {
		return "", fmt.Errorf("cannot calculate a checksum: %w", err)
	}

	return checksum, nil
}

func (b *Builder) loadLocations(ctx context.Context, run *build, inputs inputFiles) error {
	if inputs.simple || !(b.layout.CountryOnly() || b.layout.LocationFile()) {
		return nil
	}

	if inputs.locations == "" {
		return ErrNoLocations
	}

	locations, err := loadLocations(ctx, b.fs, inputs.locations, b.logger)
	if err != nil {
		return fmt.Errorf("cannot load locations: %w", err)
	}

	b.logger.BuildInfo("locations", "loaded "+strconv.Itoa(len(locations))+" geonames")

	if inputs.localized != "" && b.layout.LocationFile() {
		changed, err := applyLanguage(ctx, b.fs, inputs.localized, locations, b.logger)
		if err != nil {
			return fmt.Errorf("cannot apply language %s: %w", b.language, err)
		}

		b.logger.BuildInfo("locations", "localized "+strconv.Itoa(changed)+" geonames")
	}

	if b.layout.LocationFile() {
		merged := minifyLocations(locations, b.layout)

		b.logger.BuildInfo("minify", "merged "+strconv.Itoa(merged)+" duplicate geonames")
	}

	run.locations = locations

	return nil
}

// New validates options and creates a builder.
func New(opts Options) (*Builder, error) {
	if len(opts.Layout.Fields()) == 0 {
		return nil, geolib.ErrNoFields
	}

	rv := &Builder{
		fs:            opts.Fs,
		dir:           geolib.LayoutDir(opts.DataDir, opts.Layout),
		layout:        opts.Layout,
		language:      opts.Language,
		smallMemory:   opts.SmallMemory,
		shardFileSize: opts.ShardFileSize,
		sinkBuffer:    opts.SinkBuffer,
		logger:        opts.Logger,
	}

	if rv.fs == nil {
		rv.fs = afero.NewOsFs()
	}

	if rv.language == "" {
		rv.language = defaultLanguage
	}

	if rv.shardFileSize <= 0 {
		rv.shardFileSize = geolib.DefaultShardFileSize
	}

	if rv.sinkBuffer <= 0 {
		rv.sinkBuffer = DefaultSinkBuffer
	}

	if rv.logger == nil {
		rv.logger = geolib.NoopLogger{}
	}

	return rv, nil
}
