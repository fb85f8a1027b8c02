// Package hashservice computes the two-tier content hash cascade used to
// confirm duplicate candidates: a cheap QuickHash over a small file prefix,
// followed by a cryptographic FullHash over the entire file only when quick
// hashes collide.
package hashservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/cespare/xxhash"
)

const (
	// quickPrefixSize is how much of the file QuickHash reads.
	quickPrefixSize = 64 * 1024
	// blockSize is the read buffer used while streaming FullHash.
	blockSize = 64 * 1024
)

// Service computes quick and full content hashes for a file path.
type Service struct{}

// New returns a ready-to-use hash service.
func New() *Service {
	return &Service{}
}

// QuickHash hashes the first quickPrefixSize bytes of path with xxhash,
// returning a hex-encoded digest. Files smaller than the prefix are hashed
// in full, which means QuickHash alone is sufficient to separate most
// distinct files without ever reading the rest of them.
func (s *Service) QuickHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.CopyN(h, f, quickPrefixSize); err != nil && err != io.EOF {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// FullHash streams the entire file through SHA-256, checking ctx for
// cancellation every blockSize bytes so a cancelled scan can abandon an
// in-flight hash of a very large file promptly. Pause does not interrupt a
// hash that is already running.
func (s *Service) FullHash(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	hasher := sha256.New()
	buf := make([]byte, blockSize)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, readErr := f.Read(buf)
		if n > 0 {
			if _, err := hasher.Write(buf[:n]); err != nil {
				return "", err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", readErr
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
