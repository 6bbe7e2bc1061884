package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
	"github.com/helixml/openflights/internal/database"
)

// EmbeddingStore implements search.EmbeddingStore and search.VectorLookup
// over the <kind>s_emb tables.
type EmbeddingStore struct {
	db     database.Database
	logger *slog.Logger
}

// NewEmbeddingStore creates an EmbeddingStore. Call Migrate first.
func NewEmbeddingStore(db database.Database, logger *slog.Logger) *EmbeddingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingStore{db: db, logger: logger}
}

// Upsert writes embeddings in one transaction. Existing rows get their
// description and vector overwritten.
func (s *EmbeddingStore) Upsert(ctx context.Context, kind flight.Kind, embeddings []search.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	key := kind.EmbeddingKey()
	rows := make([]map[string]any, len(embeddings))
	for i, e := range embeddings {
		rows[i] = map[string]any{
			key:         e.ID(),
			"desc_text": e.Description(),
			"emb":       s.db.VectorParam(search.EncodeVector(e.Vector())),
		}
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		for start := 0; start < len(rows); start += saveBatchSize {
			end := min(start+saveBatchSize, len(rows))
			err := tx.Table(kind.EmbeddingTable()).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: key}},
				DoUpdates: clause.AssignmentColumns([]string{"desc_text", "emb"}),
			}).Create(rows[start:end]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", kind.EmbeddingTable(), err)
	}
	return nil
}

// Vector returns the stored embedding of an entity.
func (s *EmbeddingStore) Vector(ctx context.Context, kind flight.Kind, id int64) (search.Vector, error) {
	if s.db.IsPostgres() {
		return s.pgVector(ctx, kind, id)
	}

	var text string
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		s.db.VectorText("emb"), kind.EmbeddingTable(), kind.EmbeddingKey())
	err := s.db.Session(ctx).Raw(query, id).Row().Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d embedding: %w", kind, id, search.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %d embedding: %w", kind, id, err)
	}
	return search.ParseVector(text)
}

func (s *EmbeddingStore) pgVector(ctx context.Context, kind flight.Kind, id int64) (search.Vector, error) {
	var v pgvector.Vector
	query := fmt.Sprintf("SELECT emb FROM %s WHERE %s = ?", kind.EmbeddingTable(), kind.EmbeddingKey())
	err := s.db.Session(ctx).Raw(query, id).Row().Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d embedding: %w", kind, id, search.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %d embedding: %w", kind, id, err)
	}
	return search.Vector(v.Slice()), nil
}

// Count returns the number of embedded entities of kind.
func (s *EmbeddingStore) Count(ctx context.Context, kind flight.Kind) (int64, error) {
	var n int64
	if err := s.db.Session(ctx).Table(kind.EmbeddingTable()).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", kind.EmbeddingTable(), err)
	}
	return n, nil
}

// Description returns the stored description text of an entity.
func (s *EmbeddingStore) Description(ctx context.Context, kind flight.Kind, id int64) (string, error) {
	var text string
	query := fmt.Sprintf("SELECT desc_text FROM %s WHERE %s = ?", kind.EmbeddingTable(), kind.EmbeddingKey())
	err := s.db.Session(ctx).Raw(query, id).Row().Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s %d embedding: %w", kind, id, search.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s %d description: %w", kind, id, err)
	}
	return text, nil
}
