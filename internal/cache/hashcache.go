package cache

const (
	quickBucket = "quickhashes"
	fullBucket  = "fullhashes"
)

// HashCache memoizes QuickHash/FullHash results keyed by (path, size, mtime).
// A mismatch between the stored and current (size, mtime) is never explicitly
// detected here: the key itself changes, so the old record is simply never
// found and ages out of the cache on the next Close (spec.md §4.1).
type HashCache struct {
	s *store
}

// OpenHashCache opens (or creates) the hash cache at path. Pass "" to get a
// disabled cache where every lookup misses and every save is a no-op.
func OpenHashCache(path string) (*HashCache, error) {
	s, err := openStore(path, quickBucket, fullBucket)
	if err != nil {
		return nil, err
	}
	return &HashCache{s: s}, nil
}

// Close flushes the write database and atomically replaces the old cache
// file, keeping only entries touched (read or written) during this run.
func (c *HashCache) Close() error { return c.s.close() }

// Clear drops all cached entries from both collections.
func (c *HashCache) Clear() error { return c.s.clear(quickBucket, fullBucket) }

// TryGetQuick returns the cached quick hash for (path, size, mtime), if any.
func (c *HashCache) TryGetQuick(path string, size int64, mtimeNanoKey int64) (string, bool) {
	v, ok, _ := c.s.get(quickBucket, identityKeyNano(path, size, mtimeNanoKey))
	if !ok {
		return "", false
	}
	return string(v), true
}

// SaveQuick upserts the quick hash for (path, size, mtime).
func (c *HashCache) SaveQuick(path string, size int64, mtimeNanoKey int64, digest string) {
	_ = c.s.put(quickBucket, identityKeyNano(path, size, mtimeNanoKey), []byte(digest))
}

// TryGetFull returns the cached full hash for (path, size, mtime), if any.
func (c *HashCache) TryGetFull(path string, size int64, mtimeNanoKey int64) (string, bool) {
	v, ok, _ := c.s.get(fullBucket, identityKeyNano(path, size, mtimeNanoKey))
	if !ok {
		return "", false
	}
	return string(v), true
}

// SaveFull upserts the full hash for (path, size, mtime).
func (c *HashCache) SaveFull(path string, size int64, mtimeNanoKey int64, digest string) {
	_ = c.s.put(fullBucket, identityKeyNano(path, size, mtimeNanoKey), []byte(digest))
}
