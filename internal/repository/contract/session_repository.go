package contract

import (
	"context"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/repository/specification"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	// CreateIfMissing inserts session unless a row with the same id exists.
	CreateIfMissing(ctx context.Context, session *entity.Session) error
	Update(ctx context.Context, session *entity.Session) error
	// UpdateFields patches the named columns and returns ErrSessionNotFound
	// when no row matched.
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error)
}

type GeneratedPlanRepository interface {
	// Replace drops any plan already stored for the session and writes plan.
	Replace(ctx context.Context, sessionId string, plan []entity.DayEntry, source entity.Source) error
	DeleteBySession(ctx context.Context, sessionId string) error
}

type ShoppingListRepository interface {
	Replace(ctx context.Context, sessionId string, list []entity.ShoppingItem) error
	DeleteBySession(ctx context.Context, sessionId string) error
}
