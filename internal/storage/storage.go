// Package storage is the boundary to the content-addressed store that holds
// answer payloads. The returned hash goes verbatim into the ledger's answer
// record; retrieval is read-only and never on the write path.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Stored identifies a persisted payload.
type Stored struct {
	Hash string // content hash, verbatim in Answer.StorageHash
	URL  string // retrieval hint
}

// Store persists payloads by content.
type Store interface {
	Put(ctx context.Context, payload []byte) (Stored, error)
	Get(ctx context.Context, hash string) ([]byte, error)
}

func contentHash(payload []byte) string {
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:])
}
