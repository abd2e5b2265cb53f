package main

import (
	"os"

	"github.com/spf13/afero"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

var version = "dev"

var (
	app = kingpin.New(
		"iplocation",
		"Compact binary IP geolocation databases: build, lookup and serve.")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("ILA_DEBUG").
		Bool()
	configPath = app.Flag("config", "Path to the TOML config.").
			Short('c').
			Envar("ILA_CONFIG").
			String()

	buildCommand = app.Command("build", "Fetch sources and build a database.")
	buildForce   = buildCommand.Flag("force", "Rebuild even if sources are not changed.").
			Bool()

	lookupCommand = app.Command("lookup", "Lookup IP addresses in a built database.")
	lookupIPs     = lookupCommand.Arg("ip", "IP addresses to lookup.").
			Required().
			Strings()

	exportCommand = app.Command("export", "Export a database as a static dataset for CDN.")
	exportKind    = exportCommand.Arg("kind", "A kind of dataset.").
			Required().
			Enum("country", "geocode")
	exportDir = exportCommand.Arg("dir", "Output directory.").
			Required().
			String()

	serveCommand = app.Command("serve", "Run HTTP server.")

	dumpCommand = app.Command("dump", "Print every stored range.")
	dumpVersion = dumpCommand.Flag("version", "Dump only ranges of this IP version.").
			Default("0").
			Enum("0", "4", "6")

	verifyCommand = app.Command("verify", "Compare countries with a MaxMind mmdb database.")
	verifyMMDB    = verifyCommand.Arg("mmdb", "Path to mmdb file.").
			Required().
			ExistingFile()
	verifyStep = verifyCommand.Flag("step", "Check every N-th range.").
			Default("1").
			Int()
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	conf, err := parseConfig(*configPath)
	if err != nil {
		app.Fatalf("cannot read config: %v", err)
	}

	log := newLogger(*debug)
	log.ConfigDebug(conf)

	ctx, cancel := makeRootContext()
	defer cancel()

	fs := afero.NewOsFs()

	switch command {
	case buildCommand.FullCommand():
		err = runBuild(ctx, fs, conf, log, *buildForce)
	case lookupCommand.FullCommand():
		err = runLookup(fs, conf, log, os.Stdout, *lookupIPs)
	case exportCommand.FullCommand():
		err = runExport(ctx, fs, conf, log, *exportKind, *exportDir)
	case serveCommand.FullCommand():
		err = runServe(ctx, fs, conf, log)
	case dumpCommand.FullCommand():
		err = runDumpCommand(fs, conf, log, *dumpVersion)
	case verifyCommand.FullCommand():
		err = runVerifyCommand(fs, conf, log, *verifyMMDB, *verifyStep)
	}

	if err != nil {
		app.Fatalf("%v", err)
	}
}
