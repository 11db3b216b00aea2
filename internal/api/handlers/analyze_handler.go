package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/langextract/backend/internal/consensus"
	"github.com/langextract/backend/internal/ingestion"
)

type AnalyzeHandler struct {
	processor   *ingestion.Processor
	temperature float64
}

func NewAnalyzeHandler(processor *ingestion.Processor, temperature float64) *AnalyzeHandler {
	return &AnalyzeHandler{
		processor:   processor,
		temperature: temperature,
	}
}

func (h *AnalyzeHandler) Analyze(c *fiber.Ctx) error {
	req := consensus.Request{Temperature: h.temperature}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.processor.Analyze(c.UserContext(), req, nil)
	if err != nil {
		return respondError(c, "analyze", err)
	}

	return c.JSON(resp)
}
