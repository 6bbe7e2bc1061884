package search

import (
	"strconv"
	"strings"
)

// Result limit bounds.
const (
	DefaultLimit = 25
	MinLimit     = 1
	MaxLimit     = 200
)

// ClampLimit forces k into [MinLimit, MaxLimit].
func ClampLimit(k int) int {
	return max(MinLimit, min(MaxLimit, k))
}

// ParseLimit parses a raw k, using def when raw is blank or not an integer,
// and clamps the result. It never fails.
func ParseLimit(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = def
	}
	return ClampLimit(n)
}
