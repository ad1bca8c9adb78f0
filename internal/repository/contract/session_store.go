package contract

import (
	"context"

	"smart-meal-be/internal/entity"
)

// TransitionFunc runs inside a store's critical section with the current
// status and returns the status to persist, or an error to abort the write.
type TransitionFunc func(current *entity.Session) (entity.SessionStatus, error)

// ListFilter narrows List. Zero values do not filter.
type ListFilter struct {
	Status entity.SessionStatus
	Limit  int
}

// SessionStore is one storage backend for analysis sessions.
type SessionStore interface {
	Create(ctx context.Context, session *entity.Session) error
	// FindByID returns nil, nil when the session does not exist.
	FindByID(ctx context.Context, id string) (*entity.Session, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.Session, error)
	// AppendImages creates the session when it is missing, then appends refs
	// and applies transition atomically.
	AppendImages(ctx context.Context, id string, refs []string, transition TransitionFunc) (*entity.Session, error)
	Transition(ctx context.Context, id string, transition TransitionFunc) (*entity.Session, error)
	UpdateStatus(ctx context.Context, id string, status entity.SessionStatus) error
	SaveIngredients(ctx context.Context, id string, ingredients []entity.Ingredient, source entity.Source) error
	SaveResults(ctx context.Context, id string, plan []entity.DayEntry, list []entity.ShoppingItem, source entity.Source) error
}

// ClearableSessionStore is a backend whose whole content can be dropped.
type ClearableSessionStore interface {
	SessionStore
	Clear(ctx context.Context) error
}
