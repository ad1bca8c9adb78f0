package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/model"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.Session) (*entity.Session, error) {
	if s == nil {
		return nil, nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	e := &entity.Session{
		Id:               s.Id,
		Status:           entity.SessionStatus(s.Status),
		ImagePaths:       []string{},
		IngredientSource: entity.Source(s.IngredientSource),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        updatedAt,
	}

	if err := decodeJSON(s.ImagePaths, &e.ImagePaths); err != nil {
		return nil, fmt.Errorf("decode image_paths: %w", err)
	}
	if len(s.DetectedIngredients) > 0 {
		if err := decodeJSON(s.DetectedIngredients, &e.DetectedIngredients); err != nil {
			return nil, fmt.Errorf("decode detected_ingredients: %w", err)
		}
	}
	if s.MealPlan != nil {
		plan, err := m.PlanToEntity(s.MealPlan)
		if err != nil {
			return nil, err
		}
		e.MealPlan = plan
		e.PlanSource = entity.Source(s.MealPlan.Source)
	}
	if s.ShoppingList != nil {
		list, err := m.ShoppingListToEntity(s.ShoppingList)
		if err != nil {
			return nil, err
		}
		e.ShoppingList = list
	}

	return e, nil
}

func (m *SessionMapper) ToModel(s *entity.Session) (*model.Session, error) {
	if s == nil {
		return nil, nil
	}

	paths := s.ImagePaths
	if paths == nil {
		paths = []string{}
	}
	pathsJSON, err := json.Marshal(paths)
	if err != nil {
		return nil, err
	}

	var ingredientsJSON datatypes.JSON
	if s.DetectedIngredients != nil {
		ingredientsJSON, err = json.Marshal(s.DetectedIngredients)
		if err != nil {
			return nil, err
		}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.Session{
		Id:                  s.Id,
		Status:              string(s.Status),
		ImagePaths:          datatypes.JSON(pathsJSON),
		DetectedIngredients: ingredientsJSON,
		IngredientSource:    string(s.IngredientSource),
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           updatedAt,
	}, nil
}

func (m *SessionMapper) PlanToEntity(p *model.GeneratedPlan) ([]entity.DayEntry, error) {
	plan := []entity.DayEntry{}
	if err := decodeJSON(p.Content, &plan); err != nil {
		return nil, fmt.Errorf("decode generated_plan: %w", err)
	}
	return plan, nil
}

func (m *SessionMapper) ShoppingListToEntity(l *model.ShoppingList) ([]entity.ShoppingItem, error) {
	list := []entity.ShoppingItem{}
	if err := decodeJSON(l.Content, &list); err != nil {
		return nil, fmt.Errorf("decode shopping_list: %w", err)
	}
	return list, nil
}

func (m *SessionMapper) PlanToModel(sessionId string, plan []entity.DayEntry, source entity.Source) (*model.GeneratedPlan, error) {
	if plan == nil {
		plan = []entity.DayEntry{}
	}
	content, err := json.Marshal(plan)
	if err != nil {
		return nil, err
	}
	return &model.GeneratedPlan{
		SessionId: sessionId,
		Content:   datatypes.JSON(content),
		Source:    string(source),
	}, nil
}

func (m *SessionMapper) ShoppingListToModel(sessionId string, list []entity.ShoppingItem) (*model.ShoppingList, error) {
	if list == nil {
		list = []entity.ShoppingItem{}
	}
	content, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return &model.ShoppingList{
		SessionId: sessionId,
		Content:   datatypes.JSON(content),
	}, nil
}

// decodeJSON treats a SQL NULL or JSON null as "leave target untouched".
func decodeJSON(raw datatypes.JSON, target interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, target)
}
