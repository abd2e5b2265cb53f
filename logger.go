package main

import (
	"io"
	"os"

	"github.com/9seconds/iplocation/geolib"
	"github.com/rs/zerolog"
)

type logger struct {
	buildLog  zerolog.Logger
	lookupLog zerolog.Logger
	updateLog zerolog.Logger
	serverLog zerolog.Logger
}

func (l *logger) BuildInfo(stage, msg string) {
	l.buildLog.Info().Str("stage", stage).Msg(msg)
}

func (l *logger) BuildWarning(file, msg string) {
	l.buildLog.Warn().Str("file", file).Msg(msg)
}

func (l *logger) LookupError(ip string, err error) {
	l.lookupLog.Error().Str("ip", ip).Err(err).Msg("")
}

func (l *logger) UpdateInfo(msg string) {
	l.updateLog.Info().Msg(msg)
}

func (l *logger) UpdateError(err error) {
	l.updateLog.Error().Err(err).Msg("")
}

func (l *logger) ServerInfo(msg string) {
	l.serverLog.Info().Msg(msg)
}

func (l *logger) ServerError(err error) {
	l.serverLog.Error().Err(err).Msg("")
}

func (l *logger) ConfigDebug(conf *config) {
	l.buildLog.Debug().
		Str("data_dir", conf.GetDataDir()).
		Str("database_dir", conf.GetDatabaseDir()).
		Stringer("layout", conf.GetLayout()).
		Bool("small_memory", conf.SmallMemory).
		Msg("configuration is loaded")
}

func newLogger(debug bool) *logger {
	return newLoggerTo(os.Stderr, debug)
}

func newLoggerTo(w io.Writer, debug bool) *logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	base := zerolog.New(w).Level(level)

	return &logger{
		buildLog:  base.With().Timestamp().Stack().Str("event_name", "build").Logger(),
		lookupLog: base.With().Timestamp().Stack().Str("event_name", "lookup").Logger(),
		updateLog: base.With().Timestamp().Stack().Str("event_name", "update").Logger(),
		serverLog: base.With().Timestamp().Stack().Str("event_name", "server").Logger(),
	}
}

var _ geolib.Logger = (*logger)(nil)
