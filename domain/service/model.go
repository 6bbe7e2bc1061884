package service

import (
	"strings"
	"unicode/utf8"
)

var modelAliases = map[string]string{
	"gemini-embedding-001": "models/embedding-001",
	"embedding-001":        "models/embedding-001",
	"text-embedding-004":   "models/text-embedding-004",
}

// NormalizeModel resolves a configured model name to the fully qualified
// identifier the remote API expects. Names already carrying a "models/" or
// "tunedModels/" prefix pass through unchanged.
func NormalizeModel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "models/") || strings.HasPrefix(name, "tunedModels/") {
		return name
	}
	if alias, ok := modelAliases[name]; ok {
		return alias
	}
	return "models/" + name
}

// Models holds the default and optional multilingual model identifiers.
type Models struct {
	primary      string
	multilingual string
}

// NewModels creates Models from raw configured names. The names are stored
// as given; use NormalizeModel first when the backend needs qualified names.
func NewModels(primary, multilingual string) Models {
	return Models{
		primary:      strings.TrimSpace(primary),
		multilingual: strings.TrimSpace(multilingual),
	}
}

// Primary returns the default model.
func (m Models) Primary() string { return m.primary }

// Multilingual returns the multilingual model, or "" when not configured.
func (m Models) Multilingual() string { return m.multilingual }

// Select picks the model for text. Forcing always picks the multilingual
// model; otherwise any code point above 127 prefers it when configured.
func (m Models) Select(text string, forceMultilingual bool) string {
	if m.multilingual == "" {
		return m.primary
	}
	if forceMultilingual || !isASCII(text) {
		return m.multilingual
	}
	return m.primary
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
