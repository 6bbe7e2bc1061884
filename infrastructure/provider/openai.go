package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/helixml/openflights/domain/search"
)

// OpenAIConfig configures an OpenAIEmbedder against any OpenAI-compatible
// embeddings endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. The task
// type has no equivalent there and is ignored.
type OpenAIEmbedder struct {
	client *openai.Client
}

// NewOpenAIEmbedder creates an OpenAIEmbedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	switch {
	case cfg.HTTPClient != nil:
		config.HTTPClient = cfg.HTTPClient
	case cfg.Timeout > 0:
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(config)}
}

// Embed embeds every text of the request in one call. Model names carrying
// the Gemini "models/" prefix are sent without it.
func (p *OpenAIEmbedder) Embed(ctx context.Context, req search.EmbeddingRequest) ([]search.Vector, error) {
	texts := req.Texts()
	if len(texts) == 0 {
		return []search.Vector{}, nil
	}

	oreq := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(strings.TrimPrefix(req.Model(), "models/")),
	}
	if d := req.Dimension(); d > 0 {
		oreq.Dimensions = d
	}

	resp, err := p.client.CreateEmbeddings(ctx, oreq)
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Data) == 0 {
		return nil, NewProviderError("embedding", 0, ErrNoVectors.Error(), ErrNoVectors)
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([]search.Vector, len(data))
	for i, d := range data {
		out[i] = search.Vector(d.Embedding)
	}
	return out, nil
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError("embedding", apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError("embedding", reqErr.HTTPStatusCode, reqErr.Error(), err)
	}
	return NewProviderError("embedding", 0, fmt.Sprint(err), err)
}
