package search

import "strings"

// Query is the caller input of a similarity search: a vector, a text, or both.
// A supplied vector always takes precedence over text.
type Query struct {
	vectorText        string
	text              string
	forceMultilingual bool
}

// QueryOption is a functional option for Query.
type QueryOption func(*Query)

// WithVectorText sets the JSON array text of a precomputed query vector.
func WithVectorText(text string) QueryOption {
	return func(q *Query) { q.vectorText = strings.TrimSpace(text) }
}

// WithText sets the free text to embed.
func WithText(text string) QueryOption {
	return func(q *Query) { q.text = strings.TrimSpace(text) }
}

// WithForceMultilingual always selects the multilingual model.
func WithForceMultilingual(force bool) QueryOption {
	return func(q *Query) { q.forceMultilingual = force }
}

// NewQuery creates a Query.
func NewQuery(opts ...QueryOption) Query {
	var q Query
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// VectorText returns the supplied vector text.
func (q Query) VectorText() string { return q.vectorText }

// Text returns the supplied free text.
func (q Query) Text() string { return q.text }

// ForceMultilingual reports whether the multilingual model is forced.
func (q Query) ForceMultilingual() bool { return q.forceMultilingual }

// HasVector reports whether a vector was supplied.
func (q Query) HasVector() bool { return q.vectorText != "" }

// HasText reports whether text was supplied.
func (q Query) HasText() bool { return q.text != "" }
