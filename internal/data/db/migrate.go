package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/puzzleplan-backend/internal/domain"
)

// AutoMigrateAll creates or extends every table, including the piece
// status and type check constraints, one model at a time so a failure
// names the table that broke.
func AutoMigrateAll(db *gorm.DB) error {
	for _, model := range types.AllModels() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto migrate %s: %w", tableName(db, model), err)
		}
	}
	return nil
}

func tableName(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil || stmt.Schema == nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}
