package cache

const thumbBucket = "thumbnails"

// ThumbnailCache memoizes rendered thumbnail bytes keyed by (path, size, mtime).
type ThumbnailCache struct {
	s *store
}

// OpenThumbnailCache opens (or creates) the thumbnail cache at path. Pass ""
// to get a disabled cache where every lookup misses and every save is a no-op.
func OpenThumbnailCache(path string) (*ThumbnailCache, error) {
	s, err := openStore(path, thumbBucket)
	if err != nil {
		return nil, err
	}
	return &ThumbnailCache{s: s}, nil
}

// Close flushes the write database and atomically replaces the old cache file.
func (c *ThumbnailCache) Close() error { return c.s.close() }

// Clear drops all cached thumbnails.
func (c *ThumbnailCache) Clear() error { return c.s.clear(thumbBucket) }

// TryGet returns the cached thumbnail bytes for (path, size, mtime), if any.
func (c *ThumbnailCache) TryGet(path string, size int64, mtimeNano int64) ([]byte, bool) {
	v, ok, _ := c.s.get(thumbBucket, identityKeyNano(path, size, mtimeNano))
	return v, ok
}

// Save upserts the thumbnail bytes for (path, size, mtime).
func (c *ThumbnailCache) Save(path string, size int64, mtimeNano int64, data []byte) {
	_ = c.s.put(thumbBucket, identityKeyNano(path, size, mtimeNano), data)
}
