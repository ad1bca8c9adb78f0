package entity

import (
	"time"
)

type Ingredient struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// DayEntry is one day of a generated plan. Day labels and meal slots come from
// the model and are passed through untouched.
type DayEntry struct {
	Day   string            `json:"day"`
	Meals map[string]string `json:"meals"`
}

type ShoppingItem struct {
	Item   string `json:"item"`
	Reason string `json:"reason"`
}

// Source tells whether a result came from the live model or a canned substitute.
type Source string

const (
	SourceLive     Source = "live"
	SourceMock     Source = "mock"
	SourceFallback Source = "fallback"
)

type Session struct {
	Id         string
	Status     SessionStatus
	ImagePaths []string

	// Nil until detection completes.
	DetectedIngredients []Ingredient
	IngredientSource    Source

	// Nil until the run reaches done.
	MealPlan     []DayEntry
	ShoppingList []ShoppingItem
	PlanSource   Source

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Clone returns a deep copy so callers never share slices with a backend.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.ImagePaths != nil {
		c.ImagePaths = append([]string{}, s.ImagePaths...)
	}
	if s.DetectedIngredients != nil {
		c.DetectedIngredients = append([]Ingredient{}, s.DetectedIngredients...)
	}
	if s.MealPlan != nil {
		c.MealPlan = make([]DayEntry, len(s.MealPlan))
		for i, d := range s.MealPlan {
			meals := make(map[string]string, len(d.Meals))
			for k, v := range d.Meals {
				meals[k] = v
			}
			c.MealPlan[i] = DayEntry{Day: d.Day, Meals: meals}
		}
	}
	if s.ShoppingList != nil {
		c.ShoppingList = append([]ShoppingItem{}, s.ShoppingList...)
	}
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// ResetResults drops everything a previous run produced.
func (s *Session) ResetResults() {
	s.DetectedIngredients = nil
	s.IngredientSource = ""
	s.MealPlan = nil
	s.ShoppingList = nil
	s.PlanSource = ""
}
