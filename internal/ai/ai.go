// Package ai is the boundary to the inference collaborator that produces
// answers for submitted questions. One interface, two implementations chosen
// once at startup: a Gemini-backed client and a deterministic local one.
package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Result is a produced answer plus the hashes tying it to the inference run.
type Result struct {
	Text       string
	ModelHash  string
	InputHash  string
	OutputHash string
}

// Client answers questions. A failing call leaves no partial state anywhere;
// the relay's backlog retries it.
type Client interface {
	Answer(ctx context.Context, question string, referenceURLs []string) (Result, error)
}

func hashHex(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(h[:])
}

// proofFor fills the proof hashes for a model/input/output triple.
func proofFor(model, input, output string) (modelHash, inputHash, outputHash string) {
	return hashHex(model), hashHex(input), hashHex(output)
}
