package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/9seconds/iplocation/builder"
	"github.com/9seconds/iplocation/geolib"
	"github.com/9seconds/iplocation/sources"
	"github.com/spf13/afero"
)

func makeRootContext() (context.Context, context.CancelFunc) {
	rootCtx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)

	go func() {
		for range sigChan {
			cancel()
		}
	}()

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	return rootCtx, cancel
}

func makeHTTPClient(conf *config) geolib.HTTPClient {
	httpClient := &http.Client{
		Timeout: conf.HTTP.GetTimeout(),
	}

	return geolib.NewHTTPClient(httpClient,
		"iplocation/"+version,
		conf.HTTP.GetRateLimitInterval(),
		conf.HTTP.GetRateLimitBurst(),
		DefaultCircuitBreakerOpenThreshold,
		DefaultCircuitBreakerHalfOpen,
		DefaultCircuitBreakerResetFailures)
}

func makeSource(fs afero.Fs, conf *config, force bool) sources.Source {
	if conf.Source.Dir != "" {
		return sources.Local{
			Fs:  fs,
			Dir: conf.Source.Dir,
		}
	}

	return sources.MaxMind{
		Fs:         fs,
		HTTPClient: makeHTTPClient(conf),
		LicenseKey: conf.Source.LicenseKey,
		Series:     conf.Source.GetSeries(),
		Edition:    conf.Source.GetEdition(),
		Language:   conf.GetLanguage(),
		Force:      force,
	}
}

func makeBuilder(fs afero.Fs, conf *config, log geolib.Logger) (*builder.Builder, error) {
	return builder.New(builder.Options{
		Fs:            fs,
		DataDir:       conf.GetDataDir(),
		Layout:        conf.GetLayout(),
		Language:      conf.GetLanguage(),
		SmallMemory:   conf.SmallMemory,
		ShardFileSize: conf.GetShardFileSize(),
		Logger:        log,
	})
}

func makeDatabase(fs afero.Fs, conf *config, log geolib.Logger) *geolib.Database {
	var countryInfo geolib.CountryInfo

	if conf.CountryInfo {
		countryInfo = geolib.NewCountryInfo()
	}

	return geolib.NewDatabase(geolib.DatabaseOptions{
		Fs:             fs,
		Layout:         conf.GetLayout(),
		SmallMemory:    conf.SmallMemory,
		ShardFileSize:  conf.GetShardFileSize(),
		ShardCacheSize: conf.GetShardCacheSize(),
		CountryInfo:    countryInfo,
		Logger:         log,
	})
}

// openDatabase makes a database and loads a current generation from
// the data directory.
func openDatabase(fs afero.Fs, conf *config, log geolib.Logger) (*geolib.Database, error) {
	db := makeDatabase(fs, conf, log)

	dir, err := geolib.CurrentDir(fs, conf.GetDatabaseDir())
	if err != nil {
		return nil, fmt.Errorf("cannot open a database (was it built?): %w", err)
	}

	if err := db.Reload(dir); err != nil {
		return nil, fmt.Errorf("cannot open a database (was it built?): %w", err)
	}

	return db, nil
}

// databaseChecksum returns a checksum of the published generation.
func databaseChecksum(fs afero.Fs, conf *config) (string, error) {
	dir, err := geolib.CurrentDir(fs, conf.GetDatabaseDir())
	if err != nil {
		return "", err
	}

	return builder.Checksum(fs, dir)
}

func encodeJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)

	encoder.SetEscapeHTML(false)

	return encoder.Encode(data)
}
