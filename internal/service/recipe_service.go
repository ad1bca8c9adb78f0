package service

import (
	"context"

	"smart-meal-be/internal/dto"
	"smart-meal-be/pkg/capability"
)

type RecipeSuggester interface {
	SuggestRecipes(ctx context.Context, ingredient string) capability.RecipesOutcome
}

type IRecipeService interface {
	Suggest(ctx context.Context, req *dto.SuggestRecipesRequest) (*dto.SuggestRecipesResponse, error)
}

type recipeService struct {
	gateway RecipeSuggester
}

func NewRecipeService(gateway RecipeSuggester) IRecipeService {
	return &recipeService{gateway: gateway}
}

func (s *recipeService) Suggest(ctx context.Context, req *dto.SuggestRecipesRequest) (*dto.SuggestRecipesResponse, error) {
	out := s.gateway.SuggestRecipes(ctx, req.Ingredient)
	return &dto.SuggestRecipesResponse{
		Recipes: out.Recipes,
		Source:  string(out.Source),
	}, nil
}
