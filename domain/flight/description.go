package flight

import (
	"fmt"
	"strconv"
	"strings"
)

// DescriptionSeparator joins the parts of a description.
const DescriptionSeparator = " • "

// Describe returns the embedding description for any record.
func Describe(r Record) string {
	switch v := r.(type) {
	case Airport:
		return DescribeAirport(v)
	case Airline:
		return DescribeAirline(v)
	case Route:
		return DescribeRoute(v)
	default:
		return ""
	}
}

// DescribeAirport renders "code • name • city • country • [international] • [type] • tz".
// The code is IATA falling back to ICAO, and tz falls back to the offset column.
func DescribeAirport(a Airport) string {
	bits := []string{
		firstNonBlank(a.IATA(), a.ICAO()),
		a.Name(),
		a.City(),
		a.Country(),
	}
	if strings.Contains(a.Name(), "International") {
		bits = append(bits, "international")
	}
	bits = append(bits, a.Type())
	bits = append(bits, firstNonBlank(a.TZ(), a.Timezone()))
	return joinNonBlank(bits)
}

// DescribeAirline renders "code • name • callsign • country • active=<flag>".
func DescribeAirline(a Airline) string {
	return joinNonBlank([]string{
		firstNonBlank(a.IATA(), a.ICAO()),
		a.Name(),
		a.Callsign(),
		a.Country(),
		"active=" + strings.TrimSpace(a.Active()),
	})
}

// DescribeRoute renders "src → dst • {nonstop | N stops} • airline=<code>".
func DescribeRoute(r Route) string {
	stops := "nonstop"
	if n := r.Stops(); n != 0 {
		stops = fmt.Sprintf("%d stops", n)
	}
	return fmt.Sprintf("%s → %s%s%s%sairline=%s",
		r.Src(), r.Dst(), DescriptionSeparator, stops, DescriptionSeparator, r.Airline())
}

// RouteKey returns the dedup key of a route: airline, src and dst uppercased,
// then codeshare, stops and equipment, joined by "|" with missing values empty.
// The store computes the same expression as a generated column.
func RouteKey(r Route) string {
	stops := ""
	if r.StopsKnown() {
		stops = strconv.Itoa(r.Stops())
	}
	return strings.Join([]string{
		strings.ToUpper(r.Airline()),
		strings.ToUpper(r.Src()),
		strings.ToUpper(r.Dst()),
		r.Codeshare(),
		stops,
		r.Equipment(),
	}, "|")
}

// DedupeRoutes keeps the first route for every route key, preserving order.
// It returns the kept routes and the number removed.
func DedupeRoutes(routes []Route) ([]Route, int) {
	seen := make(map[string]struct{}, len(routes))
	kept := make([]Route, 0, len(routes))
	for _, r := range routes {
		key := RouteKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}
	return kept, len(routes) - len(kept)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinNonBlank(bits []string) string {
	kept := make([]string, 0, len(bits))
	for _, b := range bits {
		if s := strings.TrimSpace(b); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, DescriptionSeparator)
}
