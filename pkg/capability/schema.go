package capability

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"smart-meal-be/internal/entity"

	"github.com/xeipuuv/gojsonschema"
)

const ingredientSchema = `{
  "type": "object",
  "required": ["ingredients"],
  "properties": {
    "ingredients": {
      "type": "array",
      "items": {
        "anyOf": [
          {"type": "string", "minLength": 1},
          {
            "type": "object",
            "required": ["name"],
            "properties": {
              "name": {"type": "string", "minLength": 1},
              "category": {"type": "string"}
            }
          }
        ]
      }
    }
  }
}`

const planSchema = `{
  "type": "object",
  "required": ["meal_plan"],
  "properties": {
    "meal_plan": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["day", "meals"],
        "properties": {
          "day": {"type": "string", "minLength": 1},
          "meals": {"type": "object", "additionalProperties": {"type": "string"}}
        }
      }
    },
    "shopping_list": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["item"],
        "properties": {
          "item": {"type": "string", "minLength": 1},
          "reason": {"type": "string"}
        }
      }
    }
  }
}`

const recipeSchema = `{
  "type": "object",
  "required": ["recipes"],
  "properties": {
    "recipes": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
  }
}`

var (
	ingredientSchemaLoader = gojsonschema.NewStringLoader(ingredientSchema)
	planSchemaLoader       = gojsonschema.NewStringLoader(planSchema)
	recipeSchemaLoader     = gojsonschema.NewStringLoader(recipeSchema)
)

const defaultCategory = "other"

// SchemaError lists every violation found in a model answer.
type SchemaError struct {
	Errors []string
}

func (e *SchemaError) Error() string {
	return "model response does not match schema: " + strings.Join(e.Errors, "; ")
}

func validate(schema gojsonschema.JSONLoader, raw string) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return &SchemaError{Errors: msgs}
	}
	return nil
}

// stripFences removes a markdown code fence some models wrap JSON answers in.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseIngredients(raw string) ([]entity.Ingredient, error) {
	raw = stripFences(raw)
	if err := validate(ingredientSchemaLoader, raw); err != nil {
		return nil, err
	}

	var doc struct {
		Ingredients []json.RawMessage `json:"ingredients"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode ingredients: %w", err)
	}

	out := make([]entity.Ingredient, 0, len(doc.Ingredients))
	seen := make(map[string]bool, len(doc.Ingredients))
	for _, item := range doc.Ingredients {
		var ing entity.Ingredient
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			ing.Name = name
		} else if err := json.Unmarshal(item, &ing); err != nil {
			return nil, fmt.Errorf("decode ingredient: %w", err)
		}

		ing.Name = strings.TrimSpace(ing.Name)
		ing.Category = strings.ToLower(strings.TrimSpace(ing.Category))
		if ing.Name == "" {
			continue
		}
		if ing.Category == "" {
			ing.Category = defaultCategory
		}
		key := strings.ToLower(ing.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ing)
	}
	return out, nil
}

func parsePlan(raw string) ([]entity.DayEntry, []entity.ShoppingItem, error) {
	raw = stripFences(raw)
	if err := validate(planSchemaLoader, raw); err != nil {
		return nil, nil, err
	}

	var doc struct {
		MealPlan     []entity.DayEntry     `json:"meal_plan"`
		ShoppingList []entity.ShoppingItem `json:"shopping_list"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, nil, fmt.Errorf("decode plan: %w", err)
	}
	if doc.ShoppingList == nil {
		doc.ShoppingList = []entity.ShoppingItem{}
	}
	return doc.MealPlan, doc.ShoppingList, nil
}

var errNoRecipes = errors.New("model returned no recipes")

func parseRecipes(raw string) ([]string, error) {
	raw = stripFences(raw)
	if err := validate(recipeSchemaLoader, raw); err != nil {
		return nil, err
	}

	var doc struct {
		Recipes []string `json:"recipes"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode recipes: %w", err)
	}

	out := make([]string, 0, MaxRecipes)
	for _, r := range doc.Recipes {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
		if len(out) == MaxRecipes {
			break
		}
	}
	if len(out) == 0 {
		return nil, errNoRecipes
	}
	return out, nil
}
