// Package testdb provides a shared test database helper for fast,
// realistic testing against an in-memory SQLite database with sqlite-vec.
package testdb

import (
	"context"
	"testing"

	"github.com/helixml/openflights/infrastructure/persistence"
	"github.com/helixml/openflights/internal/database"
)

// Dimension is the vector size of tables created by New.
const Dimension = 4

// New creates an in-memory SQLite database with the schema migrated for
// Dimension-sized vectors. The database is closed when the test finishes.
func New(t *testing.T) database.Database {
	t.Helper()
	return NewWithDimension(t, Dimension)
}

// NewWithDimension is New with an explicit vector size.
func NewWithDimension(t *testing.T, dim int) database.Database {
	t.Helper()
	db := NewPlain(t)
	if err := persistence.Migrate(context.Background(), db, dim, nil); err != nil {
		t.Fatalf("testdb.New: migrate: %v", err)
	}
	return db
}

// NewPlain creates an in-memory SQLite database without running migrations.
func NewPlain(t *testing.T) database.Database {
	t.Helper()
	db, err := database.NewDatabase(context.Background(), "sqlite:///:memory:")
	if err != nil {
		t.Fatalf("testdb.NewPlain: open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
