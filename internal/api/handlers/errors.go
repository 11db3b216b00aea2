package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/langextract/backend/internal/extractor"
	"github.com/langextract/backend/internal/llm"
	"github.com/langextract/backend/pkg/logger"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, extractor.ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, llm.ErrModelTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, llm.ErrModelUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, op string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		logger.Error("Request failed", zap.String("op", op), zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
