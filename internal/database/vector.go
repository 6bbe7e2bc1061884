package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VectorParam binds a "[x,y,...]" literal as a vector value for the
// connected dialect.
func (d Database) VectorParam(text string) clause.Expr {
	if d.IsPostgres() {
		return gorm.Expr("CAST(? AS vector)", text)
	}
	return gorm.Expr("vec_f32(?)", text)
}

// CosineDistance returns an SQL expression with one placeholder computing the
// cosine distance between column and a bound vector literal.
func (d Database) CosineDistance(column string) string {
	if d.IsPostgres() {
		return fmt.Sprintf("%s <=> CAST(? AS vector)", column)
	}
	return fmt.Sprintf("vec_distance_cosine(%s, vec_f32(?))", column)
}

// VectorColumnType returns the column type holding vectors of dim components.
func (d Database) VectorColumnType(dim int) string {
	if d.IsPostgres() {
		return fmt.Sprintf("vector(%d)", dim)
	}
	return "BLOB"
}

// VectorText returns a select expression rendering column as JSON array text.
func (d Database) VectorText(column string) string {
	if d.IsPostgres() {
		return column + "::text"
	}
	return fmt.Sprintf("vec_to_json(%s)", column)
}
