// Package durable is the relational backend of the session store.
package durable

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/repository/contract"
	"smart-meal-be/internal/repository/specification"
	"smart-meal-be/internal/repository/unitofwork"

	"gorm.io/datatypes"
)

type SessionStore struct {
	uowFactory unitofwork.RepositoryFactory
}

var _ contract.SessionStore = (*SessionStore)(nil)

func NewSessionStore(uowFactory unitofwork.RepositoryFactory) *SessionStore {
	return &SessionStore{uowFactory: uowFactory}
}

// inTx runs fn inside a transaction and rolls back when fn fails.
func (s *SessionStore) inTx(ctx context.Context, fn func(uow unitofwork.UnitOfWork) error) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}

func (s *SessionStore) Create(ctx context.Context, session *entity.Session) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionRepository().Create(ctx, session)
}

func (s *SessionStore) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.WithResults{},
	)
}

func (s *SessionStore) List(ctx context.Context, filter contract.ListFilter) ([]*entity.Session, error) {
	specs := []specification.Specification{
		specification.WithResults{},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if filter.Status != "" {
		specs = append(specs, specification.ByStatus{Status: filter.Status})
	}
	if filter.Limit > 0 {
		specs = append(specs, specification.Pagination{Limit: filter.Limit})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionRepository().FindAll(ctx, specs...)
}

// clearResults deletes the plan and shopping list of a finished run. Callers
// reset the session columns themselves in the same transaction.
func clearResults(ctx context.Context, uow unitofwork.UnitOfWork, id string) error {
	if err := uow.GeneratedPlanRepository().DeleteBySession(ctx, id); err != nil {
		return fmt.Errorf("delete generated plan: %w", err)
	}
	if err := uow.ShoppingListRepository().DeleteBySession(ctx, id); err != nil {
		return fmt.Errorf("delete shopping list: %w", err)
	}
	return nil
}

func (s *SessionStore) AppendImages(ctx context.Context, id string, refs []string, transition contract.TransitionFunc) (*entity.Session, error) {
	err := s.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
		repo := uow.SessionRepository()

		fresh := &entity.Session{
			Id:         id,
			Status:     entity.SessionStatusWaiting,
			ImagePaths: []string{},
			CreatedAt:  time.Now(),
		}
		if err := repo.CreateIfMissing(ctx, fresh); err != nil {
			return err
		}

		current, err := repo.FindOne(ctx, specification.ByID{ID: id}, specification.ForUpdate{})
		if err != nil {
			return err
		}
		if current == nil {
			return contract.ErrSessionNotFound
		}

		next, err := transition(current)
		if err != nil {
			return &contract.GuardError{Err: err}
		}

		if current.Status.StartsNewRun(next) {
			if err := clearResults(ctx, uow, id); err != nil {
				return err
			}
			current.ResetResults()
		}
		current.ImagePaths = append(current.ImagePaths, refs...)
		current.Status = next
		return repo.Update(ctx, current)
	})
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

func (s *SessionStore) Transition(ctx context.Context, id string, transition contract.TransitionFunc) (*entity.Session, error) {
	err := s.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
		repo := uow.SessionRepository()

		current, err := repo.FindOne(ctx, specification.ByID{ID: id}, specification.ForUpdate{})
		if err != nil {
			return err
		}
		if current == nil {
			return contract.ErrSessionNotFound
		}

		next, err := transition(current)
		if err != nil {
			return &contract.GuardError{Err: err}
		}

		fields := map[string]interface{}{"status": string(next)}
		if current.Status.StartsNewRun(next) {
			if err := clearResults(ctx, uow, id); err != nil {
				return err
			}
			fields["detected_ingredients"] = nil
			fields["ingredient_source"] = ""
		}
		return repo.UpdateFields(ctx, id, fields)
	})
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

func (s *SessionStore) UpdateStatus(ctx context.Context, id string, status entity.SessionStatus) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionRepository().UpdateFields(ctx, id, map[string]interface{}{
		"status": string(status),
	})
}

func (s *SessionStore) SaveIngredients(ctx context.Context, id string, ingredients []entity.Ingredient, source entity.Source) error {
	if ingredients == nil {
		ingredients = []entity.Ingredient{}
	}
	raw, err := json.Marshal(ingredients)
	if err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionRepository().UpdateFields(ctx, id, map[string]interface{}{
		"detected_ingredients": datatypes.JSON(raw),
		"ingredient_source":    string(source),
	})
}

// SaveResults replaces the plan and shopping list in one transaction.
func (s *SessionStore) SaveResults(ctx context.Context, id string, plan []entity.DayEntry, list []entity.ShoppingItem, source entity.Source) error {
	return s.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
		current, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: id}, specification.ForUpdate{})
		if err != nil {
			return err
		}
		if current == nil {
			return contract.ErrSessionNotFound
		}
		if err := uow.GeneratedPlanRepository().Replace(ctx, id, plan, source); err != nil {
			return fmt.Errorf("replace generated plan: %w", err)
		}
		if err := uow.ShoppingListRepository().Replace(ctx, id, list); err != nil {
			return fmt.Errorf("replace shopping list: %w", err)
		}
		return nil
	})
}
