// Package cdn implements a network-delivered variant of the database.
//
// A built database is exported into two tiers of small static files
// which can be served by any CDN: a top index per IP version with the
// first start of every bucket, and a bucket shard with its own starts,
// ends and payload columns. Client resolves an address with at most
// two round trips and caches both tiers.
package cdn
