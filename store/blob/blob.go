// Package blob implements the emulator's content-addressed object store:
// every blob lives at <dir>/<first2hexchars>/<sha256hex>, so concurrent
// writers of identical bytes race harmlessly onto the same filename
// (spec.md §5 "Shared-resource policy").
package blob

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// Store owns every file under its directory. It holds no lock of its own:
// callers (store.Engine) are responsible for releasing the metadata mutex
// before calling into Store, per spec.md §5.
type Store struct {
	dir    string
	filter *cuckoo.CuckooFilter // existence pre-check only, never authoritative
}

// Open prepares dir for use, creating it if absent, and warms the
// existence filter from whatever blobs are already on disk (e.g. after a
// restart).
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{dir: dir, filter: cuckoo.NewDefaultCuckooFilter()}
	_ = godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			s.filter.InsertUnique([]byte(filepath.Base(path)))
			return nil
		},
	})
	return s, nil
}

// Hash returns the SHA-256 hex digest of data — the content address used
// throughout the storage engine (object content_hash, part content_hash).
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) pathFor(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(s.dir, "_short", hash)
	}
	return filepath.Join(s.dir, hash[:2], hash)
}

// Has reports whether a blob for hash is already on disk. A cuckoo-filter
// miss is conclusive (no false negatives); a hit still falls through to a
// real stat since the filter can false-positive.
func (s *Store) Has(hash string) bool {
	if !s.filter.Lookup([]byte(hash)) {
		return false
	}
	_, err := os.Stat(s.pathFor(hash))
	return err == nil
}

// Put writes data under its content hash, doing nothing if the blob
// already exists (idempotent by hash, per spec.md §3 "Blob store").
// Returns the hash.
func (s *Store) Put(data []byte) (string, error) {
	hash := Hash(data)
	if s.Has(hash) {
		return hash, nil
	}
	path := s.pathFor(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	tmp := path + ".tmp-" + hex.EncodeToString([]byte{byte(len(data))})
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	s.filter.InsertUnique([]byte(hash))
	return hash, nil
}

// Get reads the blob for hash. An empty hash denotes a zero-length object
// (e.g. a delete marker) and always returns an empty slice without
// touching disk, matching spec.md §4.2 "empty hash ⇒ zero-length bytes".
func (s *Store) Get(hash string) ([]byte, error) {
	if hash == "" {
		return nil, nil
	}
	return os.ReadFile(s.pathFor(hash))
}

// Open opens the blob for hash as a stream, for callers that want to
// avoid buffering the whole object (large GETs).
func (s *Store) OpenReader(hash string) (io.ReadCloser, error) {
	if hash == "" {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return os.Open(s.pathFor(hash))
}

// Dir returns the root directory this store writes under, for diagnostics.
func (s *Store) Dir() string { return s.dir }
