// Package keys defines the Redis key formats the spatial store and routes
// store use to partition geopoints by geohash prefix and to index
// RouteRecords.
package keys

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// PrimaryPartitionSet is the sorted-set key holding every geopoint key
// whose PK equals prefix.
func PrimaryPartitionSet(table, prefix string) string {
	return fmt.Sprintf("%s:primary:%s", table, prefix)
}

// SparsePartitionSet is the GSI1 analogue of PrimaryPartitionSet, keyed by
// the coarser GSI1PK prefix.
func SparsePartitionSet(table, prefix string) string {
	return fmt.Sprintf("%s:gsi1:%s", table, prefix)
}

// GeoPointKey is the hash key a single GeoPoint's JSON blob is stored
// under. pk/sk mirror the GeoPoint's own PK/SK.
func GeoPointKey(table, pk, sk string) string {
	return fmt.Sprintf("%s:item:%s:%s", table, pk, sk)
}

// RouteRecordKey is the key a RouteRecord is stored under.
func RouteRecordKey(table, routeID string) string {
	return fmt.Sprintf("%s:route:%s", table, routeID)
}

// RouteChangeChannel is the pub/sub channel the submit path publishes to and
// the worker's redis-keyspace driver subscribes to, used as the INSERT
// signal in place of a native change feed.
func RouteChangeChannel(table string) string {
	return fmt.Sprintf("%s:inserts", table)
}

// CorridorCacheKey hashes a (start, end, buffer, precision) tuple, rounded to
// 5 decimal places, into a uint64. corridor.Scanner does not use it: its LRU
// is keyed on a formatted tuple string of its own.
func CorridorCacheKey(startLat, startLon, endLat, endLon, bufferMeters float64, precision int) uint64 {
	s := fmt.Sprintf("%.5f,%.5f,%.5f,%.5f,%.0f,%d", startLat, startLon, endLat, endLon, bufferMeters, precision)
	return xxhash.Sum64String(s)
}
