// Package cache stores synthesized audio on disk so repeated chunks are not
// synthesized twice. Entries are compressed with zstd and evicted least
// recently used first once the cache exceeds its capacity.
package cache
