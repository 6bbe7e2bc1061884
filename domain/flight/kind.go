// Package flight provides the OpenFlights entity records and the rules that
// turn them into embedding descriptions.
package flight

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind indicates an entity kind outside the supported set.
var ErrUnknownKind = errors.New("unknown entity kind")

// Kind identifies one of the indexed entity types.
type Kind string

// Kind values.
const (
	KindAirport Kind = "airport"
	KindAirline Kind = "airline"
	KindRoute   Kind = "route"
)

// Kinds returns every supported kind in indexing order.
func Kinds() []Kind {
	return []Kind{KindAirport, KindAirline, KindRoute}
}

// ParseKind parses a kind from its singular or plural name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "airport", "airports":
		return KindAirport, nil
	case "airline", "airlines":
		return KindAirline, nil
	case "route", "routes":
		return KindRoute, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// String returns the singular name.
func (k Kind) String() string { return string(k) }

// Plural returns the plural name used for tables and endpoints.
func (k Kind) Plural() string { return string(k) + "s" }

// IDColumn returns the primary key column of the entity table.
func (k Kind) IDColumn() string {
	if k == KindRoute {
		return "id"
	}
	return string(k) + "_id"
}

// EmbeddingKey returns the column of the embedding table that references the
// entity. It is always "<kind>_id".
func (k Kind) EmbeddingKey() string {
	return string(k) + "_id"
}

// EmbeddingTable returns the one-to-one embedding table for the kind.
func (k Kind) EmbeddingTable() string {
	return k.Plural() + "_emb"
}

// ProgressInterval returns how many indexed rows pass between progress reports.
func (k Kind) ProgressInterval() int {
	if k == KindRoute {
		return 1000
	}
	return 500
}
