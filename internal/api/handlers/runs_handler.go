package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/langextract/backend/internal/storage/models"
	"github.com/langextract/backend/internal/storage/sqlite"
)

type RunStore interface {
	ListRuns(ctx context.Context, kind string, limit int) ([]models.Run, error)
	GetRun(ctx context.Context, id string) (*models.Run, error)
	Stats(ctx context.Context) ([]models.RunStats, error)
}

// RunsHandler serves the recorded run history. A nil store means history is
// disabled.
type RunsHandler struct {
	store RunStore
}

func NewRunsHandler(store RunStore) *RunsHandler {
	return &RunsHandler{
		store: store,
	}
}

func (h *RunsHandler) disabled(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "Run history is disabled",
	})
}

func (h *RunsHandler) List(c *fiber.Ctx) error {
	if h.store == nil {
		return h.disabled(c)
	}

	kind := c.Query("kind")
	if kind != "" && kind != models.KindExtract && kind != models.KindAnalyze {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "kind must be extract or analyze",
		})
	}

	runs, err := h.store.ListRuns(c.UserContext(), kind, c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, "list runs", err)
	}

	return c.JSON(fiber.Map{
		"runs": runs,
	})
}

func (h *RunsHandler) Get(c *fiber.Ctx) error {
	if h.store == nil {
		return h.disabled(c)
	}

	run, err := h.store.GetRun(c.UserContext(), c.Params("id"))
	if errors.Is(err, sqlite.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Run not found",
		})
	}
	if err != nil {
		return respondError(c, "get run", err)
	}

	return c.JSON(run)
}

func (h *RunsHandler) Stats(c *fiber.Ctx) error {
	if h.store == nil {
		return h.disabled(c)
	}

	stats, err := h.store.Stats(c.UserContext())
	if err != nil {
		return respondError(c, "run stats", err)
	}

	return c.JSON(fiber.Map{
		"stats": stats,
	})
}
