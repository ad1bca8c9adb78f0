package controller

import (
	"context"

	"smart-meal-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// Pinger checks the durable database. Nil when none is configured.
type Pinger func(ctx context.Context) error

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Root(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	ping        Pinger
	gatewayMode func() string
}

func NewHealthController(ping Pinger, gatewayMode func() string) IHealthController {
	return &healthController{ping: ping, gatewayMode: gatewayMode}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Root)
	r.Get("/health", c.Health)
}

func (c *healthController) Root(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"message": "Smart Meal Manager API is running"})
}

// Health always answers 200: a missing database means sessions are served
// from memory, which is degraded but working.
func (c *healthController) Health(ctx *fiber.Ctx) error {
	db := "fallback"
	if c.ping != nil && c.ping(ctx.UserContext()) == nil {
		db = "connected"
	}
	return ctx.JSON(dto.HealthResponse{
		Status:  "ok",
		Db:      db,
		Gateway: c.gatewayMode(),
	})
}
