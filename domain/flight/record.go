package flight

// Record is an indexable entity row. The set of implementations is closed:
// Airport, Airline and Route.
type Record interface {
	Kind() Kind
	ID() int64
	record()
}

// AirportParams holds the raw fields of an airport row.
type AirportParams struct {
	Name      string
	City      string
	Country   string
	IATA      string
	ICAO      string
	Latitude  *float64
	Longitude *float64
	Altitude  *int
	Timezone  string
	DST       string
	TZ        string
	Type      string
	Source    string
}

// Airport is an airport row.
type Airport struct {
	id     int64
	params AirportParams
}

// NewAirport creates an Airport.
func NewAirport(id int64, params AirportParams) Airport {
	return Airport{id: id, params: params}
}

// Kind returns KindAirport.
func (a Airport) Kind() Kind { return KindAirport }

// ID returns the airport_id.
func (a Airport) ID() int64 { return a.id }

// Name returns the airport name.
func (a Airport) Name() string { return a.params.Name }

// City returns the city served.
func (a Airport) City() string { return a.params.City }

// Country returns the country name.
func (a Airport) Country() string { return a.params.Country }

// IATA returns the three letter code, if any.
func (a Airport) IATA() string { return a.params.IATA }

// ICAO returns the four letter code, if any.
func (a Airport) ICAO() string { return a.params.ICAO }

// Latitude returns the latitude in degrees, nil when unknown.
func (a Airport) Latitude() *float64 { return copyPtr(a.params.Latitude) }

// Longitude returns the longitude in degrees, nil when unknown.
func (a Airport) Longitude() *float64 { return copyPtr(a.params.Longitude) }

// Altitude returns the altitude in feet, nil when unknown.
func (a Airport) Altitude() *int { return copyPtr(a.params.Altitude) }

// Timezone returns the UTC offset column.
func (a Airport) Timezone() string { return a.params.Timezone }

// DST returns the daylight saving code.
func (a Airport) DST() string { return a.params.DST }

// TZ returns the Olson timezone name.
func (a Airport) TZ() string { return a.params.TZ }

// Type returns the facility type.
func (a Airport) Type() string { return a.params.Type }

// Source returns the data source tag.
func (a Airport) Source() string { return a.params.Source }

// Params returns a copy of the raw fields.
func (a Airport) Params() AirportParams {
	p := a.params
	p.Latitude = copyPtr(p.Latitude)
	p.Longitude = copyPtr(p.Longitude)
	p.Altitude = copyPtr(p.Altitude)
	return p
}

func (Airport) record() {}

// AirlineParams holds the raw fields of an airline row.
type AirlineParams struct {
	Name     string
	Alias    string
	IATA     string
	ICAO     string
	Callsign string
	Country  string
	Active   string
}

// Airline is an airline row.
type Airline struct {
	id     int64
	params AirlineParams
}

// NewAirline creates an Airline.
func NewAirline(id int64, params AirlineParams) Airline {
	return Airline{id: id, params: params}
}

// Kind returns KindAirline.
func (a Airline) Kind() Kind { return KindAirline }

// ID returns the airline_id.
func (a Airline) ID() int64 { return a.id }

// Name returns the airline name.
func (a Airline) Name() string { return a.params.Name }

// Alias returns the alternative name.
func (a Airline) Alias() string { return a.params.Alias }

// IATA returns the two letter code, if any.
func (a Airline) IATA() string { return a.params.IATA }

// ICAO returns the three letter code, if any.
func (a Airline) ICAO() string { return a.params.ICAO }

// Callsign returns the radio callsign.
func (a Airline) Callsign() string { return a.params.Callsign }

// Country returns the country of registration.
func (a Airline) Country() string { return a.params.Country }

// Active returns the raw active flag ("Y" or "N").
func (a Airline) Active() string { return a.params.Active }

// Params returns a copy of the raw fields.
func (a Airline) Params() AirlineParams { return a.params }

func (Airline) record() {}

// RouteParams holds the raw fields of a route row.
type RouteParams struct {
	Airline   string
	AirlineID *int64
	Src       string
	SrcID     *int64
	Dst       string
	DstID     *int64
	Codeshare string
	Stops     *int
	Equipment string
}

// Route is a route row. Its id is assigned by the store.
type Route struct {
	id     int64
	params RouteParams
}

// NewRoute creates a Route.
func NewRoute(id int64, params RouteParams) Route {
	return Route{id: id, params: params}
}

// Kind returns KindRoute.
func (r Route) Kind() Kind { return KindRoute }

// ID returns the store assigned id (zero before insertion).
func (r Route) ID() int64 { return r.id }

// Airline returns the operating airline code.
func (r Route) Airline() string { return r.params.Airline }

// AirlineID returns the operating airline id, nil when unknown.
func (r Route) AirlineID() *int64 { return copyPtr(r.params.AirlineID) }

// Src returns the source airport code.
func (r Route) Src() string { return r.params.Src }

// SrcID returns the source airport id, nil when unknown.
func (r Route) SrcID() *int64 { return copyPtr(r.params.SrcID) }

// Dst returns the destination airport code.
func (r Route) Dst() string { return r.params.Dst }

// DstID returns the destination airport id, nil when unknown.
func (r Route) DstID() *int64 { return copyPtr(r.params.DstID) }

// Codeshare returns "Y" for codeshares, otherwise empty.
func (r Route) Codeshare() string { return r.params.Codeshare }

// Stops returns the number of stops, treating unknown as nonstop.
func (r Route) Stops() int {
	if r.params.Stops == nil {
		return 0
	}
	return *r.params.Stops
}

// StopsKnown reports whether the stops column was populated.
func (r Route) StopsKnown() bool { return r.params.Stops != nil }

// Equipment returns the aircraft type codes.
func (r Route) Equipment() string { return r.params.Equipment }

// Params returns a copy of the raw fields.
func (r Route) Params() RouteParams {
	p := r.params
	p.AirlineID = copyPtr(p.AirlineID)
	p.SrcID = copyPtr(p.SrcID)
	p.DstID = copyPtr(p.DstID)
	p.Stops = copyPtr(p.Stops)
	return p
}

func (Route) record() {}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
