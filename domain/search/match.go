package search

// AirportMatch is a ranked airport row. Score is the cosine distance.
type AirportMatch struct {
	AirportID int64
	Name      string
	City      string
	Country   string
	IATA      string
	ICAO      string
	TZ        string
	Score     float64
}

// AirlineMatch is a ranked airline row.
type AirlineMatch struct {
	AirlineID int64
	Name      string
	Country   string
	IATA      string
	ICAO      string
	Active    string
	Score     float64
}

// RouteMatch is a ranked route row.
type RouteMatch struct {
	ID      int64
	Airline string
	Src     string
	Dst     string
	Stops   int
	Score   float64
}
