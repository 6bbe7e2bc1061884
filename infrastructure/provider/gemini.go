package provider

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/helixml/openflights/domain/search"
)

// GeminiConfig configures a GeminiEmbedder.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiEmbedder calls the Gemini embedContent API. Each Embed call is a
// single request; retries are the caller's concern.
type GeminiEmbedder struct {
	client *genai.Client
}

// NewGeminiEmbedder creates a GeminiEmbedder. The client is built once and
// shared by every call.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", search.ErrMissingCredential)
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client}, nil
}

// Embed embeds every text of the request in one call.
func (g *GeminiEmbedder) Embed(ctx context.Context, req search.EmbeddingRequest) ([]search.Vector, error) {
	texts := req.Texts()
	if len(texts) == 0 {
		return []search.Vector{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	config := &genai.EmbedContentConfig{TaskType: string(req.Task())}
	if d := req.Dimension(); d > 0 {
		dim := int32(d)
		config.OutputDimensionality = &dim
	}

	resp, err := g.client.Models.EmbedContent(ctx, req.Model(), contents, config)
	if err != nil {
		return nil, NewProviderError("embed_content", 0, err.Error(), err)
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, NewProviderError("embed_content", 0, ErrNoVectors.Error(), ErrNoVectors)
	}

	out := make([]search.Vector, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, NewProviderError("embed_content", 0, fmt.Sprintf("embedding %d is empty", i), ErrNoVectors)
		}
		out[i] = search.Vector(e.Values)
	}
	return out, nil
}
