package controller

import (
	"saas-notes-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// BackendNamer reports the canonical name of the store backend in use.
type BackendNamer interface {
	Backend() string
}

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
}

type healthController struct {
	store BackendNamer
}

func NewHealthController(store BackendNamer) IHealthController {
	return &healthController{store: store}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(dto.HealthResponse{Ok: true, Backend: c.store.Backend()})
	})
}
