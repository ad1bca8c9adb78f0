package capability

import (
	"fmt"

	"smart-meal-be/internal/entity"
)

// MockIngredients is the fixed detection result for mock mode and for
// failed live detections.
func MockIngredients() []entity.Ingredient {
	return []entity.Ingredient{
		{Name: "Egg", Category: "protein"},
		{Name: "Milk", Category: "dairy"},
		{Name: "Spinach", Category: "vegetable"},
	}
}

// MockPlan is the demo plan served whenever the ingredients themselves are mock data.
func MockPlan() []entity.DayEntry {
	return []entity.DayEntry{
		{Day: "Monday", Meals: map[string]string{
			"breakfast": "Spinach omelette",
			"lunch":     "Egg fried rice",
			"dinner":    "Creamy spinach pasta",
		}},
		{Day: "Tuesday", Meals: map[string]string{
			"breakfast": "Milk porridge",
			"lunch":     "Spinach and egg wrap",
			"dinner":    "Chicken and broccoli stir-fry",
		}},
		{Day: "Wednesday", Meals: map[string]string{
			"breakfast": "Scrambled eggs on toast",
			"lunch":     "Spinach soup",
			"dinner":    "Tofu rice bowl",
		}},
	}
}

func MockShoppingList() []entity.ShoppingItem {
	return []entity.ShoppingItem{
		{Item: "Bread", Reason: "missing"},
		{Item: "Chicken Breast", Reason: "bargain"},
		{Item: "Rice", Reason: "stock"},
	}
}

// FallbackPlan is the minimal plan returned when live planning fails.
func FallbackPlan() []entity.DayEntry {
	return []entity.DayEntry{
		{Day: "Monday", Meals: map[string]string{
			"breakfast": "Toast",
			"lunch":     "Pasta",
			"dinner":    "Curry",
		}},
	}
}

func FallbackRecipes(name string) []string {
	return []string{
		fmt.Sprintf("%s salad", name),
		fmt.Sprintf("%s stir-fry", name),
		fmt.Sprintf("%s soup", name),
	}
}
