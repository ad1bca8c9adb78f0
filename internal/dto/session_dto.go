package dto

import (
	"time"

	"smart-meal-be/internal/entity"
)

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
}

// UploadFile is one multipart part, already read into memory.
type UploadFile struct {
	Filename string
	Data     []byte
}

type UploadImagesResponse struct {
	Status string   `json:"status"`
	Count  int      `json:"count"`
	Paths  []string `json:"paths"`
}

// SessionStatusResponse is the polling view. Fields stay null until the run
// produces them.
type SessionStatusResponse struct {
	Status           string                `json:"status"`
	ImageCount       int                   `json:"image_count"`
	Ingredients      []entity.Ingredient   `json:"ingredients"`
	MealPlan         []entity.DayEntry     `json:"meal_plan"`
	ShoppingList     []entity.ShoppingItem `json:"shopping_list"`
	IngredientSource string                `json:"ingredient_source,omitempty"`
	PlanSource       string                `json:"plan_source,omitempty"`
}

type AnalyzeResponse struct {
	Status      string              `json:"status"`
	Ingredients []entity.Ingredient `json:"ingredients"`
	Source      string              `json:"source,omitempty"`
}

type SessionResultResponse struct {
	Status       string                `json:"status"`
	Ingredients  []entity.Ingredient   `json:"ingredients"`
	MealPlan     []entity.DayEntry     `json:"mealPlan"`
	ShoppingList []entity.ShoppingItem `json:"shoppingList"`
	PlanSource   string                `json:"planSource,omitempty"`
}

// SessionEventMessage travels over the in-process bus and is forwarded as-is
// to websocket clients and NATS.
type SessionEventMessage struct {
	SessionId  string    `json:"session_id"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
