package ai

import (
	"context"
	"fmt"
)

const localModelName = "local-echo-v1"

// LocalClient is a deterministic offline implementation used in development
// and tests. Same question, same answer, same proof hashes.
type LocalClient struct{}

// NewLocalClient creates the offline answer client.
func NewLocalClient() *LocalClient { return &LocalClient{} }

func (c *LocalClient) Answer(ctx context.Context, question string, referenceURLs []string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	prompt := buildPrompt(question, referenceURLs)
	text := fmt.Sprintf("Provisional answer (offline mode) to: %s", question)

	mh, ih, oh := proofFor(localModelName, prompt, text)
	return Result{Text: text, ModelHash: mh, InputHash: ih, OutputHash: oh}, nil
}
