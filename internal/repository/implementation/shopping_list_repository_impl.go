package implementation

import (
	"context"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/mapper"
	"smart-meal-be/internal/model"
	"smart-meal-be/internal/repository/contract"

	"gorm.io/gorm"
)

type ShoppingListRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewShoppingListRepository(db *gorm.DB) contract.ShoppingListRepository {
	return &ShoppingListRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *ShoppingListRepositoryImpl) Replace(ctx context.Context, sessionId string, list []entity.ShoppingItem) error {
	m, err := r.mapper.ShoppingListToModel(sessionId, list)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("session_id = ?", sessionId).Delete(&model.ShoppingList{}).Error; err != nil {
		return err
	}
	return db.Create(m).Error
}

func (r *ShoppingListRepositoryImpl) DeleteBySession(ctx context.Context, sessionId string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.ShoppingList{}).Error
}
