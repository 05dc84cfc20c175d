package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIClient answers questions with Google's Gemini API.
type GenAIClient struct {
	client *genai.Client
	model  string
}

// NewGenAIClient creates a Gemini-backed answer client.
func NewGenAIClient(ctx context.Context, apiKey, model string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIClient{client: client, model: model}, nil
}

// Answer runs one inference call. The prompt folds in the reference URLs so
// the model can weigh them; the proof hashes are computed over the exact
// prompt and response texts.
func (c *GenAIClient) Answer(ctx context.Context, question string, referenceURLs []string) (Result, error) {
	prompt := buildPrompt(question, referenceURLs)

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return Result{}, fmt.Errorf("GenAI answer failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Result{}, fmt.Errorf("GenAI returned an empty answer")
	}

	mh, ih, oh := proofFor(c.model, prompt, text)
	return Result{Text: text, ModelHash: mh, InputHash: ih, OutputHash: oh}, nil
}

func buildPrompt(question string, referenceURLs []string) string {
	var b strings.Builder
	b.WriteString("Answer the following question factually and concisely.\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	if len(referenceURLs) > 0 {
		b.WriteString("\n\nReference material:\n")
		for _, u := range referenceURLs {
			b.WriteString("- ")
			b.WriteString(u)
			b.WriteString("\n")
		}
	}
	return b.String()
}
