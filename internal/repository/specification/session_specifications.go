package specification

import (
	"smart-meal-be/internal/entity"

	"gorm.io/gorm"
)

// ByStatus filters sessions by pipeline status
type ByStatus struct {
	Status entity.SessionStatus
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(s.Status))
}

// WithResults preloads the generated plan and shopping list.
type WithResults struct{}

func (s WithResults) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload("MealPlan").Preload("ShoppingList")
}
