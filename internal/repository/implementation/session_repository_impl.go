package implementation

import (
	"context"
	"errors"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/mapper"
	"smart-meal-be/internal/model"
	"smart-meal-be/internal/repository/contract"
	"smart-meal-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *entity.Session) error {
	m, err := r.mapper.ToModel(session)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Omit("MealPlan", "ShoppingList").Create(m).Error; err != nil {
		return err
	}
	session.CreatedAt = m.CreatedAt
	return nil
}

func (r *SessionRepositoryImpl) CreateIfMissing(ctx context.Context, session *entity.Session) error {
	m, err := r.mapper.ToModel(session)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Omit("MealPlan", "ShoppingList").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m).Error
}

// Update writes the session row only; plans and lists have their own repositories.
func (r *SessionRepositoryImpl) Update(ctx context.Context, session *entity.Session) error {
	m, err := r.mapper.ToModel(session)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Omit("MealPlan", "ShoppingList").Save(m).Error
}

func (r *SessionRepositoryImpl) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Session{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return contract.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error) {
	var m model.Session
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *SessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error) {
	var models []*model.Session
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	sessions := make([]*entity.Session, 0, len(models))
	for _, m := range models {
		s, err := r.mapper.ToEntity(m)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
