package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/langextract/backend/internal/prompts"
	"github.com/langextract/backend/internal/schema"
	"github.com/langextract/backend/pkg/logger"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type MetaHandler struct {
	provider string
	model    string
	checks   map[string]Check
}

func NewMetaHandler(provider, model string, checks map[string]Check) *MetaHandler {
	return &MetaHandler{
		provider: provider,
		model:    model,
		checks:   checks,
	}
}

func (h *MetaHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"provider": h.provider,
		"model":    h.model,
		"time":     time.Now().Unix(),
	})
}

func (h *MetaHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	status := fiber.StatusOK
	results := make(fiber.Map, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != fiber.StatusOK {
		state = "not ready"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": state,
		"checks": results,
	})
}

func (h *MetaHandler) Schemas(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"schemas": schema.ListSchemas(),
		"default": schema.DefaultSchema,
	})
}

func (h *MetaHandler) Domains(c *fiber.Ctx) error {
	domains := make([]fiber.Map, 0, len(prompts.ListDomains()))
	for _, name := range prompts.ListDomains() {
		domains = append(domains, fiber.Map{
			"name":         name,
			"entity_types": prompts.EntityTypes(name),
		})
	}
	return c.JSON(fiber.Map{
		"domains": domains,
	})
}
