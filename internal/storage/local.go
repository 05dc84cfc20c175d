package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var hexHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ErrNotStored is returned when a hash has no payload in the store.
var ErrNotStored = errors.New("no payload stored under this hash")

// LocalStore keeps payloads as content-addressed files under a directory.
// Writing the same payload twice lands on the same file.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory-backed store.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Put(ctx context.Context, payload []byte) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	hash := contentHash(payload)
	path := filepath.Join(s.dir, hash)
	if _, err := os.Stat(path); err == nil {
		return Stored{Hash: hash, URL: "file://" + path}, nil
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return Stored{}, fmt.Errorf("write payload: %w", err)
	}
	return Stored{Hash: hash, URL: "file://" + path}, nil
}

func (s *LocalStore) Get(ctx context.Context, hash string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !hexHashPattern.MatchString(hash) {
		return nil, fmt.Errorf("malformed content hash %q", hash)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotStored
		}
		return nil, err
	}
	return data, nil
}
