// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed defines the embedding boundary the engine calls through.
// Embedding computation itself is an external collaborator capability;
// this package provides the interface, an HTTP client for a remote
// service, and a deterministic local fallback.
package embed

import "context"

// Embedder generates a vector embedding for a text. Implementations must
// be safe for concurrent use.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
