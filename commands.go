package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/9seconds/iplocation/cdn"
	"github.com/9seconds/iplocation/sources"
	"github.com/spf13/afero"
)

const (
	serverReadHeaderTimeout = 10 * time.Second
	serverShutdownTimeout   = 10 * time.Second
)

func runBuild(ctx context.Context, fs afero.Fs, conf *config, log *logger, force bool) error {
	checksum, err := runUpdate(ctx, fs, conf, log, force)

	switch {
	case errors.Is(err, sources.ErrNothingToDo):
		log.BuildInfo("fetch", "sources are not changed, nothing to do")

		return nil
	case err != nil:
		return err
	}

	log.BuildInfo("done", "database "+conf.GetDatabaseDir()+" has checksum "+checksum)

	return nil
}

func runLookup(fs afero.Fs, conf *config, log *logger, out io.Writer, ips []string) error {
	db, err := openDatabase(fs, conf, log)
	if err != nil {
		return err
	}

	for _, ip := range ips {
		rv := ResolveResult{
			IP: ip,
		}

		data, err := db.Lookup(ip)
		if err != nil {
			rv.Error = err.Error()
		} else {
			rv.Result = data
		}

		if err := encodeJSON(out, rv); err != nil {
			return fmt.Errorf("cannot write a result: %w", err)
		}
	}

	return nil
}

func runExport(ctx context.Context, fs afero.Fs, conf *config, log *logger, kindName, dir string) error {
	kind, err := cdn.ParseKind(kindName)
	if err != nil {
		return err
	}

	db, err := openDatabase(fs, conf, log)
	if err != nil {
		return err
	}

	datasetVersion, err := cdn.Export(ctx, db, kind, fs, dir)
	if err != nil {
		return fmt.Errorf("cannot export a dataset: %w", err)
	}

	log.BuildInfo("export", kind.String()+" dataset "+dir+" has version "+datasetVersion)

	return nil
}

func runServe(ctx context.Context, fs afero.Fs, conf *config, log *logger) error {
	db, err := openDatabase(fs, conf, log)
	if err != nil {
		return err
	}

	res, err := newResolver(db, conf.Server.GetWorkerPoolSize())
	if err != nil {
		return fmt.Errorf("cannot create a worker pool: %w", err)
	}

	defer res.Shutdown()

	// an absence of checksum is not critical, it is informational only
	checksum, _ := databaseChecksum(fs, conf)
	res.stats.Reloaded(checksum)

	if conf.Source.GetUpdateEvery() > 0 {
		upd := newUpdater(ctx, fs, conf, log, db, res.stats)

		upd.Start()
		defer upd.Shutdown()
	}

	server := &http.Server{
		Addr:              conf.Server.GetListen(),
		Handler:           makeHTTPHandler(fs, db, res, conf),
		ReadHeaderTimeout: serverReadHeaderTimeout,
	}

	errChan := make(chan error, 1)

	go func() {
		errChan <- server.ListenAndServe()
	}()

	log.ServerInfo("listening on " + conf.Server.GetListen())

	select {
	case err := <-errChan:
		return fmt.Errorf("server has failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.ServerError(err)
	}

	log.ServerInfo("server is stopped")

	return nil
}

func runDumpCommand(fs afero.Fs, conf *config, log *logger, versionName string) error {
	db, err := openDatabase(fs, conf, log)
	if err != nil {
		return err
	}

	versions := []int{4, 6}

	if versionName != "0" {
		v, _ := strconv.Atoi(versionName)
		versions = []int{v}
	}

	return runDump(db, os.Stdout, versions)
}

func runVerifyCommand(fs afero.Fs, conf *config, log *logger, mmdbPath string, step int) error {
	db, err := openDatabase(fs, conf, log)
	if err != nil {
		return err
	}

	report, err := runVerify(db, mmdbPath, step)
	if err != nil {
		return err
	}

	return encodeJSON(os.Stdout, report)
}
