// Package cache provides durable, self-cleaning key→value stores for the
// scan engine's two memoization points: content hashes (HashCache) and
// rendered thumbnails (ThumbnailCache). Both share the same BoltDB
// discipline: an existing database opened read-only, a new database opened
// for writes, and an atomic rename on Close so that only entries touched
// during the run survive.
package cache

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const dirPerm = 0o755
const filePerm = 0o600
const lockTimeout = 1 * time.Second

// store is the shared BoltDB-backed implementation behind HashCache and
// ThumbnailCache. Exported wrappers pick the bucket name(s).
type store struct {
	readDB  *bolt.DB
	writeDB *bolt.DB
	path    string
	enabled bool
}

// openStore opens path for reading (if it exists) and path+".new" for
// writing, creating buckets eagerly. Returns a disabled store if path is "".
func openStore(path string, buckets ...string) (*store, error) {
	if path == "" {
		return &store{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, err
	}

	s := &store{path: path, enabled: true}

	if _, err := os.Stat(path); err == nil {
		db, err := bolt.Open(path, filePerm, &bolt.Options{ReadOnly: true, Timeout: lockTimeout})
		if err == nil {
			s.readDB = db
		}
	}

	newPath := path + ".new"
	writeDB, err := bolt.Open(newPath, filePerm, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		_ = s.close()
		return nil, err
	}
	s.writeDB = writeDB

	if err := s.writeDB.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = s.close()
		return nil, err
	}

	return s, nil
}

func (s *store) close() error {
	var firstErr error
	if s.readDB != nil {
		if err := s.readDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.writeDB != nil {
		if err := s.writeDB.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else if err := os.Rename(s.path+".new", s.path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// identityKeyNano builds a deterministic key: path + NUL + size(8) + mtimeNano(8).
// Any change to size or mtime produces a different key, so a stale record is
// simply never looked up again (spec.md §3 "HashRecord"/"ThumbnailRecord"
// invariant) rather than needing explicit invalidation.
func identityKeyNano(path string, size int64, mtimeNano int64) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(path)
	buf.WriteByte(0)
	_ = binary.Write(buf, binary.BigEndian, size)
	_ = binary.Write(buf, binary.BigEndian, mtimeNano)
	return buf.Bytes()
}

func (s *store) get(bucket string, key []byte) ([]byte, bool, error) {
	if !s.enabled || s.readDB == nil {
		return nil, false, nil
	}

	var val []byte
	err := s.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if val == nil {
		return nil, false, nil
	}

	// Self-cleaning: a valid hit is copied into the new database so it
	// survives this run's atomic swap even if never re-written.
	_ = s.put(bucket, key, val)

	return val, true, nil
}

func (s *store) put(bucket string, key, val []byte) error {
	if !s.enabled || s.writeDB == nil {
		return nil
	}
	return s.writeDB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put(key, val)
	})
}

func (s *store) clear(buckets ...string) error {
	if !s.enabled || s.writeDB == nil {
		return nil
	}
	return s.writeDB.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if err := tx.DeleteBucket([]byte(b)); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	})
}
