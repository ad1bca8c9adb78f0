package controller

import (
	"smart-meal-be/internal/dto"
	"smart-meal-be/internal/pkg/serverutils"
	"smart-meal-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	ResetFallback(ctx *fiber.Ctx) error
	ResetSchema(ctx *fiber.Ctx) error
	GetSessionBackend(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	GetSystemLogs(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
}

func NewAdminController(service service.IAdminService) IAdminController {
	return &adminController{service: service}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")
	h.Post("/reset", c.ResetFallback)
	h.Post("/reset-schema", c.ResetSchema)
	h.Get("/sessions", c.ListSessions)
	h.Get("/session/:id/backend", c.GetSessionBackend)
	h.Get("/logs", c.GetSystemLogs)
}

func (c *adminController) ResetFallback(ctx *fiber.Ctx) error {
	res, err := c.service.ResetFallback(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("In-memory sessions cleared", res))
}

func (c *adminController) ResetSchema(ctx *fiber.Ctx) error {
	res, err := c.service.ResetSchema(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Schema dropped and recreated", res))
}

func (c *adminController) GetSessionBackend(ctx *fiber.Ctx) error {
	res := c.service.GetSessionBackend(ctx.UserContext(), ctx.Params("id"))
	return ctx.JSON(serverutils.SuccessResponse("Session backend", res))
}

func (c *adminController) ListSessions(ctx *fiber.Ctx) error {
	var req dto.ListSessionsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return &dto.ValidationError{Message: "invalid query parameters"}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ListSessions(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Latest sessions", res))
}

func (c *adminController) GetSystemLogs(ctx *fiber.Ctx) error {
	var req dto.GetLogsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return &dto.ValidationError{Message: "invalid query parameters"}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.GetSystemLogs(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", res))
}
