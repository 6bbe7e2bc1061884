package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/helixml/openflights/domain/flight"
)

// Dump file names.
const (
	AirportsDescFile = "airports_desc.csv"
	AirlinesDescFile = "airlines_desc.csv"
)

// WriteDescriptions writes a header of idColumn,desc_text followed by one
// row per record.
func WriteDescriptions(w io.Writer, idColumn string, records []flight.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{idColumn, "desc_text"}); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{strconv.FormatInt(r.ID(), 10), flight.Describe(r)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DumpDescriptions writes airports_desc.csv and airlines_desc.csv into dir.
func DumpDescriptions(dir string, airports []flight.Airport, airlines []flight.Airline) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}
	if err := dumpFile(filepath.Join(dir, AirportsDescFile), flight.KindAirport, records(airports)); err != nil {
		return err
	}
	return dumpFile(filepath.Join(dir, AirlinesDescFile), flight.KindAirline, records(airlines))
}

func dumpFile(path string, kind flight.Kind, recs []flight.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := WriteDescriptions(f, kind.IDColumn(), recs); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func records[T flight.Record](items []T) []flight.Record {
	out := make([]flight.Record, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
