// Iplocation builds compact binary IP geolocation databases from
// GeoLite2-style CSV files and answers lookups from them.
//
// Tool itself is organized into 4 logical parts:
//
// Geolib
//
// geolib is a core library: primitive codecs, record layout calculator
// and a lookup engine which reads a built database either into memory
// or lazily from small shard files.
//
// Builder
//
// builder turns CSV files into a database directory. Only requested
// fields are stored, each set of fields gets its own directory.
//
// CDN
//
// cdn exports a database as a static dataset of a top index and bucket
// files which can be hosted on any CDN, and provides a client which
// resolves IPs with at most two small HTTP requests.
//
// Sources
//
// sources fetches CSV files: either from a local directory or from
// MaxMind with a license key.
//
// A main package wires everything into a CLI with build, lookup,
// export, serve, dump and verify commands. serve starts an HTTP server
// which resolves IPs and hosts exported datasets.
package main
