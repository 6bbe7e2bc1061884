package persistence

import "github.com/helixml/openflights/domain/flight"

// AirportModel is the airports table.
type AirportModel struct {
	AirportID int64    `gorm:"column:airport_id;primaryKey;autoIncrement:false"`
	Name      *string  `gorm:"column:name;size:255"`
	City      *string  `gorm:"column:city;size:255"`
	Country   *string  `gorm:"column:country;size:255"`
	IATA      *string  `gorm:"column:iata;size:8"`
	ICAO      *string  `gorm:"column:icao;size:8"`
	Latitude  *float64 `gorm:"column:latitude"`
	Longitude *float64 `gorm:"column:longitude"`
	Altitude  *int     `gorm:"column:altitude"`
	Timezone  *string  `gorm:"column:timezone;size:255"`
	DST       *string  `gorm:"column:dst;size:8"`
	TZ        *string  `gorm:"column:tz;size:255;index:idx_airports_tz"`
	Type      *string  `gorm:"column:type;size:64"`
	Source    *string  `gorm:"column:source;size:64"`
}

// TableName returns the table name.
func (AirportModel) TableName() string { return "airports" }

// AirlineModel is the airlines table.
type AirlineModel struct {
	AirlineID int64   `gorm:"column:airline_id;primaryKey;autoIncrement:false"`
	Name      *string `gorm:"column:name;size:255"`
	Alias     *string `gorm:"column:alias;size:255"`
	IATA      *string `gorm:"column:iata;size:8"`
	ICAO      *string `gorm:"column:icao;size:8"`
	Callsign  *string `gorm:"column:callsign;size:255"`
	Country   *string `gorm:"column:country;size:255;index:idx_airlines_country"`
	Active    *string `gorm:"column:active;size:4"`
}

// TableName returns the table name.
func (AirlineModel) TableName() string { return "airlines" }

// RouteModel is the routes table. RouteKey is generated by the database.
type RouteModel struct {
	ID        int64   `gorm:"column:id;primaryKey"`
	Airline   *string `gorm:"column:airline"`
	AirlineID *int64  `gorm:"column:airline_id"`
	Src       *string `gorm:"column:src"`
	SrcID     *int64  `gorm:"column:src_id"`
	Dst       *string `gorm:"column:dst"`
	DstID     *int64  `gorm:"column:dst_id"`
	Codeshare *string `gorm:"column:codeshare"`
	Stops     *int    `gorm:"column:stops"`
	Equipment *string `gorm:"column:equipment"`
	RouteKey  string  `gorm:"column:route_key;->"`
}

// TableName returns the table name.
func (RouteModel) TableName() string { return "routes" }

type airportMapper struct{}

func (airportMapper) ToDomain(m AirportModel) flight.Airport {
	return flight.NewAirport(m.AirportID, flight.AirportParams{
		Name:      deref(m.Name),
		City:      deref(m.City),
		Country:   deref(m.Country),
		IATA:      deref(m.IATA),
		ICAO:      deref(m.ICAO),
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Altitude:  m.Altitude,
		Timezone:  deref(m.Timezone),
		DST:       deref(m.DST),
		TZ:        deref(m.TZ),
		Type:      deref(m.Type),
		Source:    deref(m.Source),
	})
}

func (airportMapper) ToModel(a flight.Airport) AirportModel {
	p := a.Params()
	return AirportModel{
		AirportID: a.ID(),
		Name:      nullable(p.Name),
		City:      nullable(p.City),
		Country:   nullable(p.Country),
		IATA:      nullable(p.IATA),
		ICAO:      nullable(p.ICAO),
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Altitude:  p.Altitude,
		Timezone:  nullable(p.Timezone),
		DST:       nullable(p.DST),
		TZ:        nullable(p.TZ),
		Type:      nullable(p.Type),
		Source:    nullable(p.Source),
	}
}

type airlineMapper struct{}

func (airlineMapper) ToDomain(m AirlineModel) flight.Airline {
	return flight.NewAirline(m.AirlineID, flight.AirlineParams{
		Name:     deref(m.Name),
		Alias:    deref(m.Alias),
		IATA:     deref(m.IATA),
		ICAO:     deref(m.ICAO),
		Callsign: deref(m.Callsign),
		Country:  deref(m.Country),
		Active:   deref(m.Active),
	})
}

func (airlineMapper) ToModel(a flight.Airline) AirlineModel {
	p := a.Params()
	return AirlineModel{
		AirlineID: a.ID(),
		Name:      nullable(p.Name),
		Alias:     nullable(p.Alias),
		IATA:      nullable(p.IATA),
		ICAO:      nullable(p.ICAO),
		Callsign:  nullable(p.Callsign),
		Country:   nullable(p.Country),
		Active:    nullable(p.Active),
	}
}

type routeMapper struct{}

func (routeMapper) ToDomain(m RouteModel) flight.Route {
	return flight.NewRoute(m.ID, flight.RouteParams{
		Airline:   deref(m.Airline),
		AirlineID: m.AirlineID,
		Src:       deref(m.Src),
		SrcID:     m.SrcID,
		Dst:       deref(m.Dst),
		DstID:     m.DstID,
		Codeshare: deref(m.Codeshare),
		Stops:     m.Stops,
		Equipment: deref(m.Equipment),
	})
}

func (routeMapper) ToModel(r flight.Route) RouteModel {
	p := r.Params()
	return RouteModel{
		ID:        r.ID(),
		Airline:   nullable(p.Airline),
		AirlineID: p.AirlineID,
		Src:       nullable(p.Src),
		SrcID:     p.SrcID,
		Dst:       nullable(p.Dst),
		DstID:     p.DstID,
		Codeshare: nullable(p.Codeshare),
		Stops:     p.Stops,
		Equipment: nullable(p.Equipment),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
