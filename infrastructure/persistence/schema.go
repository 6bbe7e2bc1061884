// Package persistence provides database storage implementations.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
	"github.com/helixml/openflights/internal/database"
)

// routeKeyExpr mirrors flight.RouteKey. It is shared by both dialects.
const routeKeyExpr = `UPPER(COALESCE(airline, '')) || '|' || UPPER(COALESCE(src, '')) || '|' || UPPER(COALESCE(dst, '')) || '|' || COALESCE(codeshare, '') || '|' || COALESCE(CAST(stops AS TEXT), '') || '|' || COALESCE(equipment, '')`

const (
	pgCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgCreateRoutes = `
CREATE TABLE IF NOT EXISTS routes (
    id BIGSERIAL PRIMARY KEY,
    airline VARCHAR(8),
    airline_id BIGINT,
    src VARCHAR(8),
    src_id BIGINT,
    dst VARCHAR(8),
    dst_id BIGINT,
    codeshare VARCHAR(4),
    stops INTEGER,
    equipment VARCHAR(255),
    route_key TEXT GENERATED ALWAYS AS (` + routeKeyExpr + `) STORED
)`

	sqliteCreateRoutes = `
CREATE TABLE IF NOT EXISTS routes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    airline TEXT,
    airline_id INTEGER,
    src TEXT,
    src_id INTEGER,
    dst TEXT,
    dst_id INTEGER,
    codeshare TEXT,
    stops INTEGER,
    equipment TEXT,
    route_key TEXT GENERATED ALWAYS AS (` + routeKeyExpr + `) STORED
)`

	createRouteIndexes = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_route_key ON routes (route_key)`
	createRouteLookup  = `CREATE INDEX IF NOT EXISTS idx_routes_src_dst ON routes (src, dst)`

	createEmbeddingTableTemplate = `
CREATE TABLE IF NOT EXISTS %s (
    %s BIGINT PRIMARY KEY REFERENCES %s (%s) ON DELETE CASCADE,
    desc_text TEXT NOT NULL,
    emb %s NOT NULL
)`

	pgCreateVectorIndexTemplate = `
CREATE INDEX IF NOT EXISTS %s_emb_idx
ON %s
USING ivfflat (emb vector_cosine_ops)
WITH (lists = 100)`

	pgCheckDimensionTemplate = `
SELECT a.atttypmod AS dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = '%s'
AND a.attname = 'emb'`

	sqliteCheckDimensionTemplate = `SELECT vec_length(emb) FROM %s LIMIT 1`
)

// ErrMigrationFailed indicates the schema could not be created.
var ErrMigrationFailed = errors.New("failed to migrate schema")

// Migrate creates the entity and embedding tables and verifies that stored
// vectors have dim components. Empty embedding tables of another dimension
// are recreated; a mismatch with stored rows returns an error matching
// search.ErrDimensionMismatch.
func Migrate(ctx context.Context, db database.Database, dim int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrMigrationFailed, dim)
	}
	session := db.Session(ctx)

	if db.IsPostgres() {
		if err := session.Exec(pgCreateExtension).Error; err != nil {
			return errors.Join(ErrMigrationFailed, fmt.Errorf("create extension: %w", err))
		}
	}

	if err := session.AutoMigrate(&AirportModel{}, &AirlineModel{}); err != nil {
		return errors.Join(ErrMigrationFailed, fmt.Errorf("auto migrate: %w", err))
	}

	routes := sqliteCreateRoutes
	if db.IsPostgres() {
		routes = pgCreateRoutes
	}
	for _, stmt := range []string{routes, createRouteIndexes, createRouteLookup} {
		if err := session.Exec(stmt).Error; err != nil {
			return errors.Join(ErrMigrationFailed, fmt.Errorf("create routes: %w", err))
		}
	}

	for _, kind := range flight.Kinds() {
		if err := migrateEmbeddingTable(ctx, db, kind, dim, logger); err != nil {
			return err
		}
	}

	return nil
}

// migrateEmbeddingTable creates the embedding table for kind and checks its
// dimension. An empty table of another dimension is dropped and created
// again at dim; a populated one is a mismatch.
func migrateEmbeddingTable(ctx context.Context, db database.Database, kind flight.Kind, dim int, logger *slog.Logger) error {
	table := kind.EmbeddingTable()
	if err := createEmbeddingTable(ctx, db, kind, dim, logger); err != nil {
		return err
	}

	err := checkDimension(ctx, db, table, dim)
	if !errors.Is(err, search.ErrDimensionMismatch) {
		return err
	}
	var rows int64
	if cerr := db.Session(ctx).Table(table).Count(&rows).Error; cerr != nil {
		return errors.Join(ErrMigrationFailed, fmt.Errorf("count %s: %w", table, cerr))
	}
	if rows > 0 {
		return err
	}

	logger.Warn("recreating empty embedding table at new dimension",
		slog.String("table", table), slog.Int("dimension", dim))
	if derr := db.Session(ctx).Exec("DROP TABLE " + table).Error; derr != nil {
		return errors.Join(ErrMigrationFailed, fmt.Errorf("drop %s: %w", table, derr))
	}
	if err := createEmbeddingTable(ctx, db, kind, dim, logger); err != nil {
		return err
	}
	return checkDimension(ctx, db, table, dim)
}

func createEmbeddingTable(ctx context.Context, db database.Database, kind flight.Kind, dim int, logger *slog.Logger) error {
	session := db.Session(ctx)
	table := kind.EmbeddingTable()
	ddl := fmt.Sprintf(createEmbeddingTableTemplate,
		table, kind.EmbeddingKey(), kind.Plural(), kind.IDColumn(), db.VectorColumnType(dim))
	if err := session.Exec(ddl).Error; err != nil {
		return errors.Join(ErrMigrationFailed, fmt.Errorf("create %s: %w", table, err))
	}

	if db.IsPostgres() {
		if err := session.Exec(fmt.Sprintf(pgCreateVectorIndexTemplate, table, table)).Error; err != nil {
			logger.Warn("failed to create vector index (may already exist)",
				slog.String("table", table), slog.String("error", err.Error()))
		}
	}
	return nil
}

func checkDimension(ctx context.Context, db database.Database, table string, dim int) error {
	query := fmt.Sprintf(sqliteCheckDimensionTemplate, table)
	if db.IsPostgres() {
		query = fmt.Sprintf(pgCheckDimensionTemplate, table)
	}

	var got int
	err := db.Session(ctx).Raw(query).Row().Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return errors.Join(ErrMigrationFailed, fmt.Errorf("check dimension of %s: %w", table, err))
	}
	if got != dim {
		return fmt.Errorf("%s: %w", table, search.NewDimensionMismatchError(dim, got))
	}
	return nil
}
