package implementation

import (
	"context"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/mapper"
	"smart-meal-be/internal/model"
	"smart-meal-be/internal/repository/contract"

	"gorm.io/gorm"
)

type GeneratedPlanRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewGeneratedPlanRepository(db *gorm.DB) contract.GeneratedPlanRepository {
	return &GeneratedPlanRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *GeneratedPlanRepositoryImpl) Replace(ctx context.Context, sessionId string, plan []entity.DayEntry, source entity.Source) error {
	m, err := r.mapper.PlanToModel(sessionId, plan, source)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("session_id = ?", sessionId).Delete(&model.GeneratedPlan{}).Error; err != nil {
		return err
	}
	return db.Create(m).Error
}

func (r *GeneratedPlanRepositoryImpl) DeleteBySession(ctx context.Context, sessionId string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.GeneratedPlan{}).Error
}
