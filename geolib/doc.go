// This package provides a set of structs and functions which are used
// to read and decode a compact binary geolocation database.
//
// geolib is a core of the iplocation project. Builder and network
// packages produce and consume the same binary shapes, so everything
// which defines these shapes lives here: primitive codecs, a record
// layout and a lookup engine.
//
// Database is a main entity of the geolib. It holds a set of column
// arrays (starts, ends and payloads) per IP version, swaps them
// atomically on reload and answers point queries with a binary search
// over starts. In small memory mode only starts are kept in memory,
// ends and payloads are paged from sharded files on demand.
//
// RecordLayout describes which attributes are stored and how many
// bytes they take. It is computed once from a list of requested fields
// and passed both to the builder and to the database.
package geolib
