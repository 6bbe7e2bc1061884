// Package dto holds the JSON shapes of the v1 API.
package dto

import "github.com/helixml/openflights/domain/search"

// AirportRow is one ranked airport in a similar-airports response.
type AirportRow struct {
	AirportID int64   `json:"airport_id"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	IATA      string  `json:"iata"`
	ICAO      string  `json:"icao"`
	TZ        string  `json:"tz"`
	Score     float64 `json:"score"`
}

// AirlineRow is one ranked airline in a similar-airlines response.
type AirlineRow struct {
	AirlineID int64   `json:"airline_id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	IATA      string  `json:"iata"`
	ICAO      string  `json:"icao"`
	Active    string  `json:"active"`
	Score     float64 `json:"score"`
}

// RouteRow is one ranked route in a similar-routes response.
type RouteRow struct {
	ID      int64   `json:"id"`
	Airline string  `json:"airline"`
	Src     string  `json:"src"`
	Dst     string  `json:"dst"`
	Stops   int     `json:"stops"`
	Score   float64 `json:"score"`
}

// IndexStatusAttributes are the attributes of an index_status resource.
type IndexStatusAttributes struct {
	Total    int64 `json:"total"`
	Embedded int64 `json:"embedded"`
	Pending  int64 `json:"pending"`
}

// AirportRows converts matches to response rows. The result is never nil.
func AirportRows(matches []search.AirportMatch) []AirportRow {
	rows := make([]AirportRow, len(matches))
	for i, m := range matches {
		rows[i] = AirportRow{
			AirportID: m.AirportID,
			Name:      m.Name,
			City:      m.City,
			Country:   m.Country,
			IATA:      m.IATA,
			ICAO:      m.ICAO,
			TZ:        m.TZ,
			Score:     m.Score,
		}
	}
	return rows
}

// AirlineRows converts matches to response rows. The result is never nil.
func AirlineRows(matches []search.AirlineMatch) []AirlineRow {
	rows := make([]AirlineRow, len(matches))
	for i, m := range matches {
		rows[i] = AirlineRow{
			AirlineID: m.AirlineID,
			Name:      m.Name,
			Country:   m.Country,
			IATA:      m.IATA,
			ICAO:      m.ICAO,
			Active:    m.Active,
			Score:     m.Score,
		}
	}
	return rows
}

// RouteRows converts matches to response rows. The result is never nil.
func RouteRows(matches []search.RouteMatch) []RouteRow {
	rows := make([]RouteRow, len(matches))
	for i, m := range matches {
		rows[i] = RouteRow{
			ID:      m.ID,
			Airline: m.Airline,
			Src:     m.Src,
			Dst:     m.Dst,
			Stops:   m.Stops,
			Score:   m.Score,
		}
	}
	return rows
}
