// Package dataset reads the OpenFlights .dat files and writes description
// dumps.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/helixml/openflights/domain/flight"
)

// File names as published by OpenFlights.
const (
	AirportsFile = "airports.dat"
	AirlinesFile = "airlines.dat"
	RoutesFile   = "routes.dat"
)

// Column counts of each file.
const (
	airportColumns = 14
	airlineColumns = 8
	routeColumns   = 9
)

// nullToken marks a missing value.
const nullToken = `\N`

// maxTZLength bounds the timezone columns.
const maxTZLength = 255

// ErrShortRow indicates a row with fewer columns than the file layout.
var ErrShortRow = errors.New("row has too few columns")

// Stats reports rows skipped while reading a file.
type Stats struct {
	Read    int
	Skipped int
}

// ReadAirports parses airports.dat rows. Rows whose id is not numeric are
// skipped.
func ReadAirports(r io.Reader) ([]flight.Airport, Stats, error) {
	var (
		out   []flight.Airport
		stats Stats
	)
	err := readRows(r, airportColumns, func(f fields) {
		id, ok := f.int64At(0)
		if !ok {
			stats.Skipped++
			return
		}
		stats.Read++
		out = append(out, flight.NewAirport(id, flight.AirportParams{
			Name:      f.at(1),
			City:      f.at(2),
			Country:   f.at(3),
			IATA:      f.at(4),
			ICAO:      f.at(5),
			Latitude:  f.floatAt(6),
			Longitude: f.floatAt(7),
			Altitude:  f.intAt(8),
			Timezone:  truncate(f.at(9), maxTZLength),
			DST:       f.at(10),
			TZ:        truncate(f.at(11), maxTZLength),
			Type:      f.at(12),
			Source:    f.at(13),
		}))
	})
	return out, stats, err
}

// ReadAirlines parses airlines.dat rows.
func ReadAirlines(r io.Reader) ([]flight.Airline, Stats, error) {
	var (
		out   []flight.Airline
		stats Stats
	)
	err := readRows(r, airlineColumns, func(f fields) {
		id, ok := f.int64At(0)
		if !ok {
			stats.Skipped++
			return
		}
		stats.Read++
		out = append(out, flight.NewAirline(id, flight.AirlineParams{
			Name:     f.at(1),
			Alias:    f.at(2),
			IATA:     f.at(3),
			ICAO:     f.at(4),
			Callsign: f.at(5),
			Country:  f.at(6),
			Active:   f.at(7),
		}))
	})
	return out, stats, err
}

// ReadRoutes parses routes.dat rows. Routes carry no id in the file.
func ReadRoutes(r io.Reader) ([]flight.Route, Stats, error) {
	var (
		out   []flight.Route
		stats Stats
	)
	err := readRows(r, routeColumns, func(f fields) {
		stats.Read++
		out = append(out, flight.NewRoute(0, flight.RouteParams{
			Airline:   f.at(0),
			AirlineID: f.int64Ptr(1),
			Src:       f.at(2),
			SrcID:     f.int64Ptr(3),
			Dst:       f.at(4),
			DstID:     f.int64Ptr(5),
			Codeshare: f.at(6),
			Stops:     f.intAt(7),
			Equipment: f.at(8),
		}))
	})
	return out, stats, err
}

// Files holds the three datasets read from a directory.
type Files struct {
	Airports      []flight.Airport
	Airlines      []flight.Airline
	Routes        []flight.Route
	AirportsStats Stats
	AirlinesStats Stats
	RoutesStats   Stats
}

// ReadDir reads airports.dat, airlines.dat and routes.dat from dir.
func ReadDir(dir string) (Files, error) {
	var files Files
	err := withFile(filepath.Join(dir, AirportsFile), func(r io.Reader) (err error) {
		files.Airports, files.AirportsStats, err = ReadAirports(r)
		return err
	})
	if err != nil {
		return files, err
	}
	err = withFile(filepath.Join(dir, AirlinesFile), func(r io.Reader) (err error) {
		files.Airlines, files.AirlinesStats, err = ReadAirlines(r)
		return err
	})
	if err != nil {
		return files, err
	}
	err = withFile(filepath.Join(dir, RoutesFile), func(r io.Reader) (err error) {
		files.Routes, files.RoutesStats, err = ReadRoutes(r)
		return err
	})
	return files, err
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()
	if err := fn(f); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readRows(r io.Reader, columns int, row func(fields)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < columns {
			return fmt.Errorf("line %d: %w: got %d, want %d", line, ErrShortRow, len(record), columns)
		}
		row(fields(record))
	}
}

// fields is one CSV record with null-aware accessors.
type fields []string

func (f fields) at(i int) string {
	v := strings.TrimSpace(f[i])
	if v == nullToken {
		return ""
	}
	return v
}

func (f fields) int64At(i int) (int64, bool) {
	n, err := strconv.ParseInt(f.at(i), 10, 64)
	return n, err == nil
}

func (f fields) int64Ptr(i int) *int64 {
	n, ok := f.int64At(i)
	if !ok {
		return nil
	}
	return &n
}

func (f fields) intAt(i int) *int {
	v := f.at(i)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fl, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return nil
		}
		n = int(fl)
	}
	return &n
}

func (f fields) floatAt(i int) *float64 {
	n, err := strconv.ParseFloat(f.at(i), 64)
	if err != nil {
		return nil
	}
	return &n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
