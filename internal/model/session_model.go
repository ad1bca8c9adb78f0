package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Session struct {
	Id                  string         `gorm:"type:varchar(64);primaryKey"`
	Status              string         `gorm:"type:varchar(32);not null;default:'waiting'"`
	ImagePaths          datatypes.JSON `gorm:"type:jsonb;not null"`
	DetectedIngredients datatypes.JSON `gorm:"type:jsonb"`
	IngredientSource    string         `gorm:"type:varchar(16)"`
	CreatedAt           time.Time      `gorm:"autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime"`

	MealPlan     *GeneratedPlan `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE"`
	ShoppingList *ShoppingList  `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE"`
}

func (Session) TableName() string {
	return "sessions"
}

type GeneratedPlan struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	Content   datatypes.JSON `gorm:"type:jsonb;not null"`
	Source    string         `gorm:"type:varchar(16)"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (GeneratedPlan) TableName() string {
	return "generated_plans"
}

type ShoppingList struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	Content   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (ShoppingList) TableName() string {
	return "shopping_lists"
}

// AllModels lists the tables owned by the durable backend, parents first.
func AllModels() []interface{} {
	return []interface{}{
		&Session{},
		&GeneratedPlan{},
		&ShoppingList{},
	}
}
