// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/meshintel/match-engine/internal/httputil"
	"github.com/meshintel/match-engine/pkg/types"
)

// RemoteEmbedder calls an HTTP embedding service.
type RemoteEmbedder struct {
	Client *http.Client
	Config types.EmbeddingConfig
}

// NewRemote returns an embedder for the configured endpoint.
func NewRemote(cfg types.EmbeddingConfig) *RemoteEmbedder {
	return &RemoteEmbedder{
		Client: &http.Client{Timeout: cfg.Timeout},
		Config: cfg,
	}
}

type embedRequest struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedText posts text to the embedding endpoint and returns the vector.
// Rate-limit and transient-unavailability responses are retried with
// backoff; other non-200 statuses are errors.
func (e *RemoteEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if e.Config.Endpoint == "" {
		return nil, fmt.Errorf("no embedding endpoint configured")
	}

	body, err := json.Marshal(embedRequest{Model: e.Config.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", e.Config.UserAgent)
	if e.Config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.Config.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, e.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("embedding service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned HTTP %d", resp.StatusCode)
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing embedding response: %w", err)
	}

	if len(er.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}
	if e.Config.Dimensions > 0 && len(er.Embedding) != e.Config.Dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(er.Embedding), e.Config.Dimensions)
	}
	return er.Embedding, nil
}
