package search

import (
	"context"
	"strings"
)

// EmbeddingRequest is a single call to a remote embedding model.
type EmbeddingRequest struct {
	model     string
	task      TaskType
	dimension int
	texts     []string
}

// NewEmbeddingRequest creates an EmbeddingRequest.
func NewEmbeddingRequest(model string, task TaskType, dimension int, texts []string) EmbeddingRequest {
	cp := make([]string, len(texts))
	copy(cp, texts)
	return EmbeddingRequest{model: model, task: task, dimension: dimension, texts: cp}
}

// Model returns the model identifier.
func (r EmbeddingRequest) Model() string { return r.model }

// Task returns the task type tag.
func (r EmbeddingRequest) Task() TaskType { return r.task }

// Dimension returns the requested output dimensionality.
func (r EmbeddingRequest) Dimension() int { return r.dimension }

// Texts returns the texts to embed.
func (r EmbeddingRequest) Texts() []string {
	cp := make([]string, len(r.texts))
	copy(cp, r.texts)
	return cp
}

// Embedder calls a remote embedding model. Each call is one attempt; retry
// policy belongs to the caller. Implementations return one vector per text in
// input order or an error.
type Embedder interface {
	Embed(ctx context.Context, request EmbeddingRequest) ([]Vector, error)
}

// VectorCache stores query vectors keyed by model, task and text.
type VectorCache interface {
	Get(ctx context.Context, key string) (Vector, bool)
	Put(ctx context.Context, key string, v Vector)
}

// CacheKey builds the VectorCache key for a text embedded with model and task.
func CacheKey(model string, task TaskType, text string) string {
	return strings.Join([]string{model, string(task), text}, "\x1f")
}
