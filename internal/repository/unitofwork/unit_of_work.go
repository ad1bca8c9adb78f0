package unitofwork

import (
	"context"

	"smart-meal-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	GeneratedPlanRepository() contract.GeneratedPlanRepository
	ShoppingListRepository() contract.ShoppingListRepository
}
