// Package builder converts CSV geo-IP feeds into the binary database
// format read by geolib.Database.
//
// Two input conventions are supported. The first one is a MaxMind
// GeoLite2 style set of files: Locations-<lang>.csv with geoname
// attributes and Blocks-IPv4.csv/Blocks-IPv6.csv with networks which
// refer to geonames. The second one is a simplified country feed with
// network1,network2,cc columns in files which end with v4.csv and
// v6.csv.
//
// A build is a single streaming pass over each block file. Adjacent
// ranges with identical payload are merged on the fly, so memory usage
// does not depend on a number of rows. Output is written under
// temporary names and renamed into place only when every writer has
// finished successfully.
package builder
