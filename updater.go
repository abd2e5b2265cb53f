package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/9seconds/iplocation/builder"
	"github.com/9seconds/iplocation/geolib"
	"github.com/9seconds/iplocation/sources"
	"github.com/spf13/afero"
)

// runUpdate fetches sources into tmp directory and rebuilds a database.
// It returns sources.ErrNothingToDo if upstream has not changed since
// the last download.
func runUpdate(ctx context.Context, fs afero.Fs, conf *config, log geolib.Logger, force bool) (string, error) {
	// a database of these fields was never built, so the downloaded
	// archive has to be used again even if it is not changed
	if _, err := geolib.CurrentGeneration(fs, conf.GetDatabaseDir()); err != nil {
		force = true
	}

	if err := fs.MkdirAll(conf.GetTmpDir(), 0o755); err != nil {
		return "", fmt.Errorf("cannot create tmp directory: %w", err)
	}

	files, err := makeSource(fs, conf, force).Fetch(ctx, conf.GetTmpDir())
	if err != nil {
		return "", fmt.Errorf("cannot fetch sources: %w", err)
	}

	log.BuildInfo("fetch", fmt.Sprintf("%d source files", len(files)))

	dbBuilder, err := makeBuilder(fs, conf, log)
	if err != nil {
		return "", fmt.Errorf("cannot create a builder: %w", err)
	}

	checksum, err := dbBuilder.Build(ctx, files)
	if err != nil {
		return "", fmt.Errorf("cannot build a database: %w", err)
	}

	return checksum, nil
}

// updater periodically rebuilds a database and reloads it into a
// running server.
type updater struct {
	ctx      context.Context
	cancel   context.CancelFunc
	fs       afero.Fs
	conf     *config
	logger   *logger
	db       *geolib.Database
	stats    *usageStats
	every    time.Duration
	checksum string
}

func (u *updater) Start() {
	// an error means there is no database yet
	u.checksum, _ = databaseChecksum(u.fs, u.conf)

	go u.bgUpdate()
}

func (u *updater) Shutdown() {
	u.cancel()
}

func (u *updater) bgUpdate() {
	ticker := time.NewTicker(u.every)
	defer ticker.Stop()

	for {
		select {
		case <-u.ctx.Done():
			return
		case <-ticker.C:
			if err := u.doUpdate(); err != nil {
				u.logger.UpdateError(err)
			}
		}
	}
}

func (u *updater) doUpdate() error {
	checksum, err := runUpdate(u.ctx, u.fs, u.conf, u.logger, false)

	switch {
	case errors.Is(err, sources.ErrNothingToDo):
		u.logger.UpdateInfo("sources are not changed")

		return nil
	case err != nil:
		return err
	case checksum == u.checksum:
		u.logger.UpdateInfo("database is not changed")

		return nil
	}

	generation, err := geolib.CurrentGeneration(u.fs, u.conf.GetDatabaseDir())
	if err != nil {
		return fmt.Errorf("cannot find a new database: %w", err)
	}

	if err := u.db.Reload(geolib.GenerationDir(u.conf.GetDatabaseDir(), generation)); err != nil {
		return fmt.Errorf("cannot reload a database: %w", err)
	}

	// nothing reads previous generations after reload
	if err := builder.Prune(u.fs, u.conf.GetDatabaseDir(), generation); err != nil {
		u.logger.UpdateError(err)
	}

	u.checksum = checksum
	u.stats.Reloaded(checksum)

	u.logger.UpdateInfo("database has been updated to " + checksum)

	return nil
}

func newUpdater(ctx context.Context, fs afero.Fs, conf *config, log *logger,
	db *geolib.Database, stats *usageStats) *updater {
	ctx, cancel := context.WithCancel(ctx)

	return &updater{
		ctx:    ctx,
		cancel: cancel,
		fs:     fs,
		conf:   conf,
		logger: log,
		db:     db,
		stats:  stats,
		every:  conf.Source.GetUpdateEvery(),
	}
}
