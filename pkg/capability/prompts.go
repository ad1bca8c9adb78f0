package capability

import (
	"fmt"
	"strings"

	"smart-meal-be/internal/entity"
)

const ingredientPrompt = `Analyze these images of a refrigerator or pantry.
Identify every food ingredient that is visible. If a receipt or flyer is visible,
include the item names printed on it.

Return JSON only, in this format:
{"ingredients": [{"name": "egg", "category": "protein"}, {"name": "carrot", "category": "vegetable"}]}`

const planningPrompt = `You are a meal planner.
Using the INGREDIENTS and BARGAIN_ITEMS below, create a meal plan for one week.

Rules:
1. Prefer the INGREDIENTS so nothing goes to waste.
2. Use BARGAIN_ITEMS where possible to save money.
3. Add a shopping list entry for every item the plan needs that is not in INGREDIENTS.

Return JSON only, in this format:
{"meal_plan": [{"day": "Monday", "meals": {"breakfast": "...", "lunch": "...", "dinner": "..."}}],
 "shopping_list": [{"item": "...", "reason": "missing | bargain | stock"}]}`

const recipePrompt = `Suggest up to three simple recipes that use %q as the main ingredient.

Return JSON only, in this format:
{"recipes": ["...", "...", "..."]}`

// PlanningInput restates the planning inputs as text. The output depends only
// on the order of its arguments.
func PlanningInput(ingredients []entity.Ingredient, bargainItems []string) string {
	names := make([]string, len(ingredients))
	for i, ing := range ingredients {
		names[i] = ing.Name
	}
	return fmt.Sprintf("INGREDIENTS: %s\nBARGAIN_ITEMS: %s",
		strings.Join(names, ", "),
		strings.Join(bargainItems, ", "))
}
