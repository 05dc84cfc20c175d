package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Errors for the IPFS-backed store.
var (
	ErrIPFSNotConfigured = errors.New("IPFS not configured")
	ErrInvalidCID        = errors.New("invalid CID format")
	ErrIPFSUnavailable   = errors.New("IPFS service unavailable")
)

// CIDv0 (Qm...) or CIDv1 base32
var cidPattern = regexp.MustCompile(`^(Qm[1-9A-HJ-NP-Za-km-z]{44}|b[a-z2-7]{58,})$`)

// IPFSStore persists payloads through the IPFS HTTP API (Kubo compatible).
type IPFSStore struct {
	apiURL     string
	httpClient *http.Client
}

// NewIPFSStore creates an HTTP-API backed store. The client timeout bounds
// every call; the relay retries transient failures with backoff.
func NewIPFSStore(apiURL string, httpClient *http.Client) *IPFSStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &IPFSStore{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		httpClient: httpClient,
	}
}

// ipfsAddResponse represents the JSON response from /api/v0/add
type ipfsAddResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

func (s *IPFSStore) Put(ctx context.Context, payload []byte) (Stored, error) {
	if s.apiURL == "" {
		return Stored{}, ErrIPFSNotConfigured
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "answer")
	if err != nil {
		return Stored{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return Stored{}, fmt.Errorf("failed to write payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Stored{}, fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/api/v0/add?pin=true", &buf)
	if err != nil {
		return Stored{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Stored{}, fmt.Errorf("%w: %v", ErrIPFSUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Stored{}, fmt.Errorf("%w: add returned %d", ErrIPFSUnavailable, resp.StatusCode)
	}

	var added ipfsAddResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return Stored{}, fmt.Errorf("decode add response: %w", err)
	}
	if !cidPattern.MatchString(added.Hash) {
		return Stored{}, fmt.Errorf("%w: %q", ErrInvalidCID, added.Hash)
	}
	return Stored{Hash: added.Hash, URL: s.apiURL + "/ipfs/" + added.Hash}, nil
}

func (s *IPFSStore) Get(ctx context.Context, hash string) ([]byte, error) {
	if s.apiURL == "" {
		return nil, ErrIPFSNotConfigured
	}
	if !cidPattern.MatchString(hash) {
		return nil, ErrInvalidCID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/api/v0/cat?arg="+hash, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIPFSUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: cat returned %d", ErrIPFSUnavailable, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
