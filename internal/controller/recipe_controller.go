package controller

import (
	"smart-meal-be/internal/dto"
	"smart-meal-be/internal/pkg/serverutils"
	"smart-meal-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRecipeController interface {
	RegisterRoutes(r fiber.Router)
	Suggest(ctx *fiber.Ctx) error
}

type recipeController struct {
	recipeService service.IRecipeService
}

func NewRecipeController(recipeService service.IRecipeService) IRecipeController {
	return &recipeController{recipeService: recipeService}
}

func (c *recipeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/recipes")
	h.Post("/suggest", c.Suggest)
}

func (c *recipeController) Suggest(ctx *fiber.Ctx) error {
	var req dto.SuggestRecipesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return &dto.ValidationError{Message: "invalid request body"}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.recipeService.Suggest(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
