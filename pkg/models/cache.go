package models

import "time"

// Artifact is the opaque value produced by a remote fetch: a JSON analysis
// record or an encoded image string.
type Artifact []byte

// CacheEntry stores one cached remote artifact.
type CacheEntry struct {
	Key       string    `json:"key"`
	Value     Artifact  `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Expired reports whether the entry is older than ttl at the given instant.
func (e CacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) >= ttl
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries  int64 `json:"entries"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Degraded bool  `json:"degraded"`
}
