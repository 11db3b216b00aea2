package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/langextract/backend/internal/ingestion"
)

// postExtract sends req to a running API server instead of calling the model
// from this process.
func postExtract(baseURL string, timeout time.Duration, req ingestion.ExtractRequest) (ingestion.ExtractResponse, error) {
	var resp ingestion.ExtractResponse

	url := strings.TrimRight(baseURL, "/") + "/api/v1/extract"
	agent := fiber.Post(url).JSON(req)
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return resp, fmt.Errorf("backend request failed: %w", errors.Join(errs...))
	}
	if status != fiber.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return resp, fmt.Errorf("backend returned %d: %s", status, apiErr.Error)
		}
		return resp, fmt.Errorf("backend returned %d", status)
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return resp, fmt.Errorf("failed to decode backend response: %w", err)
	}
	return resp, nil
}
