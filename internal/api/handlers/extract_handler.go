package handlers

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/langextract/backend/internal/ingestion"
	"github.com/langextract/backend/internal/report"
	"github.com/langextract/backend/pkg/logger"
)

// ExtractHandler serves single-pass extraction. temperature applies to
// requests that do not set one.
type ExtractHandler struct {
	processor   *ingestion.Processor
	temperature float64
}

func NewExtractHandler(processor *ingestion.Processor, temperature float64) *ExtractHandler {
	return &ExtractHandler{
		processor:   processor,
		temperature: temperature,
	}
}

func (h *ExtractHandler) Extract(c *fiber.Ctx) error {
	req := ingestion.ExtractRequest{Temperature: h.temperature}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.processor.Extract(c.UserContext(), req)
	if err != nil {
		return respondError(c, "extract", err)
	}

	return c.JSON(resp)
}

// Report runs an extraction and answers with the highlighted HTML report.
func (h *ExtractHandler) Report(c *fiber.Ctx) error {
	req := ingestion.ExtractRequest{Temperature: h.temperature}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.processor.Extract(c.UserContext(), req)
	if err != nil {
		return respondError(c, "report", err)
	}

	var buf bytes.Buffer
	err = report.Render(&buf, report.Input{
		SourceText: resp.Text,
		Result:     resp.Result(),
		Language:   resp.Language,
		Model:      resp.Model,
	})
	if err != nil {
		logger.Error("Failed to render report", zap.String("run_id", resp.RunID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to render report",
		})
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}
