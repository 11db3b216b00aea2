package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/langextract/backend/internal/consensus"
	"github.com/langextract/backend/internal/ingestion"
	"github.com/langextract/backend/internal/schema"
	"github.com/langextract/backend/pkg/logger"
)

// WebSocketHandler streams consensus progress. Each message the client sends
// is an analyze request; the server answers with one "stage" message per
// finished analysis and then "complete" or "error".
type WebSocketHandler struct {
	processor   *ingestion.Processor
	temperature float64
}

func NewWebSocketHandler(processor *ingestion.Processor, temperature float64) *WebSocketHandler {
	return &WebSocketHandler{
		processor:   processor,
		temperature: temperature,
	}
}

type stageMessage struct {
	Type     string               `json:"type"`
	Stage    consensus.Stage      `json:"stage"`
	Analysis schema.ModelAnalysis `json:"analysis"`
}

type completeMessage struct {
	Type   string                    `json:"type"`
	Result ingestion.AnalyzeResponse `json:"result"`
}

type errorMessage struct {
	Type   string `json:"type"`
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		req := consensus.Request{Temperature: h.temperature}
		if err := c.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("Failed to read WebSocket message", zap.Error(err))
			}
			return
		}

		if err := h.streamAnalysis(c, req); err != nil {
			logger.Error("Failed to stream analysis", zap.Error(err))
			return
		}
	}
}

func (h *WebSocketHandler) streamAnalysis(c *websocket.Conn, req consensus.Request) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeErr error
	progress := func(stage consensus.Stage, analysis schema.ModelAnalysis) {
		if writeErr != nil {
			return
		}
		if writeErr = c.WriteJSON(stageMessage{Type: "stage", Stage: stage, Analysis: analysis}); writeErr != nil {
			cancel()
		}
	}

	resp, err := h.processor.Analyze(ctx, req, progress)
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		return c.WriteJSON(errorMessage{Type: "error", Error: err.Error(), Status: statusFor(err)})
	}

	return c.WriteJSON(completeMessage{Type: "complete", Result: resp})
}
