package search

import (
	"fmt"
	"strings"
)

// MaxStops is the largest accepted stops_max filter.
const MaxStops = 3

// AirportFilter narrows airport searches.
type AirportFilter struct {
	tzPrefix string
}

// AirportFilterOption is a functional option for AirportFilter.
type AirportFilterOption func(*AirportFilter)

// WithTZPrefix restricts results to timezones starting with prefix.
// A trailing "%" is accepted; a prefix without one is treated the same way.
func WithTZPrefix(prefix string) AirportFilterOption {
	return func(f *AirportFilter) {
		f.tzPrefix = strings.TrimSpace(prefix)
	}
}

// NewAirportFilter creates an AirportFilter.
func NewAirportFilter(opts ...AirportFilterOption) AirportFilter {
	var f AirportFilter
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// TZPrefix returns the trimmed timezone prefix.
func (f AirportFilter) TZPrefix() string { return f.tzPrefix }

// TZPattern returns the LIKE pattern for the prefix, or empty when unset.
func (f AirportFilter) TZPattern() string {
	if f.tzPrefix == "" {
		return ""
	}
	if strings.HasSuffix(f.tzPrefix, "%") {
		return f.tzPrefix
	}
	return f.tzPrefix + "%"
}

// IsEmpty reports whether no filter is set.
func (f AirportFilter) IsEmpty() bool { return f.tzPrefix == "" }

// AirlineFilter narrows airline searches.
type AirlineFilter struct {
	country string
}

// AirlineFilterOption is a functional option for AirlineFilter.
type AirlineFilterOption func(*AirlineFilter)

// WithCountry restricts results to an exact country name.
func WithCountry(country string) AirlineFilterOption {
	return func(f *AirlineFilter) {
		f.country = strings.TrimSpace(country)
	}
}

// NewAirlineFilter creates an AirlineFilter.
func NewAirlineFilter(opts ...AirlineFilterOption) AirlineFilter {
	var f AirlineFilter
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Country returns the exact country filter.
func (f AirlineFilter) Country() string { return f.country }

// IsEmpty reports whether no filter is set.
func (f AirlineFilter) IsEmpty() bool { return f.country == "" }

// RouteFilter narrows route searches within the candidate pool.
type RouteFilter struct {
	src          string
	dst          string
	avoidAirline string
	stopsMax     *int
}

// RouteFilterOption is a functional option for RouteFilter.
type RouteFilterOption func(*RouteFilter)

// WithSrc requires the source airport code.
func WithSrc(code string) RouteFilterOption {
	return func(f *RouteFilter) { f.src = normalizeCode(code) }
}

// WithDst requires the destination airport code.
func WithDst(code string) RouteFilterOption {
	return func(f *RouteFilter) { f.dst = normalizeCode(code) }
}

// WithAvoidAirline excludes routes flown by the airline code.
func WithAvoidAirline(code string) RouteFilterOption {
	return func(f *RouteFilter) { f.avoidAirline = normalizeCode(code) }
}

// WithStopsMax caps the number of stops.
func WithStopsMax(n int) RouteFilterOption {
	return func(f *RouteFilter) { f.stopsMax = &n }
}

// NewRouteFilter creates a RouteFilter.
func NewRouteFilter(opts ...RouteFilterOption) RouteFilter {
	var f RouteFilter
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Src returns the required source code.
func (f RouteFilter) Src() string { return f.src }

// Dst returns the required destination code.
func (f RouteFilter) Dst() string { return f.dst }

// AvoidAirline returns the excluded airline code.
func (f RouteFilter) AvoidAirline() string { return f.avoidAirline }

// StopsMax returns the stop cap and whether it is set.
func (f RouteFilter) StopsMax() (int, bool) {
	if f.stopsMax == nil {
		return 0, false
	}
	return *f.stopsMax, true
}

// IsEmpty reports whether no filter is set.
func (f RouteFilter) IsEmpty() bool {
	return f.src == "" && f.dst == "" && f.avoidAirline == "" && f.stopsMax == nil
}

// Validate checks stops_max is within [0, MaxStops].
func (f RouteFilter) Validate() error {
	if n, ok := f.StopsMax(); ok && (n < 0 || n > MaxStops) {
		return fmt.Errorf("%w: stops_max must be between 0 and %d, got %d", ErrInvalidFilter, MaxStops, n)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
