package database

import (
	"context"
	"fmt"

	"smart-meal-be/internal/model"

	"gorm.io/gorm"
)

// Schema owns the durable tables.
type Schema struct {
	db *gorm.DB
}

func NewSchema(db *gorm.DB) *Schema {
	return &Schema{db: db}
}

func (s *Schema) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// ResetSchema drops every durable table, children first, and recreates them.
// It returns the table names in creation order.
func (s *Schema) ResetSchema(ctx context.Context) ([]string, error) {
	models := model.AllModels()
	migrator := s.db.WithContext(ctx).Migrator()

	for i := len(models) - 1; i >= 0; i-- {
		if err := migrator.DropTable(models[i]); err != nil {
			return nil, fmt.Errorf("drop table: %w", err)
		}
	}
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(models))
	for _, m := range models {
		if t, ok := m.(interface{ TableName() string }); ok {
			tables = append(tables, t.TableName())
		}
	}
	return tables, nil
}
