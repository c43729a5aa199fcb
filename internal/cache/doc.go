// Package cache implements the filesystem-backed JSON cache. Every logical key
// is hashed into a directory under the cache root, and every write lands in
// that directory as one entry file whose name carries the TTL metadata:
//
//	<CacheDirectory>/<hashedKey>/<maxAgeMs>.<expireAtEpochMs>.<etag>.json
//
// The file body is the raw JSON text of the cached value. Expired entries are
// only cleaned up when a read (or an explicit Prune) walks past them. Storage
// failures never surface as errors; callers branch on the result Status.
package cache
