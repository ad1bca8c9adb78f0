package dto

type SuggestRecipesRequest struct {
	Ingredient string `json:"ingredient" validate:"required,max=100"`
}

type SuggestRecipesResponse struct {
	Recipes []string `json:"recipes"`
	Source  string   `json:"source,omitempty"`
}
