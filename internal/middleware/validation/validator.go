package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	// MaxTextChars bounds the "text" field in characters. Zero disables the check.
	MaxTextChars        int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects malformed extraction bodies before they reach a handler:
// the body must be a JSON object with a non-blank "text" string, and the
// optional generation parameters must be in range.
func Middleware(cfg Config) fiber.Handler {
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationJSON}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		allowed := false
		for _, allowedType := range cfg.AllowedContentTypes {
			if strings.Contains(contentType, allowedType) {
				allowed = true
				break
			}
		}
		if !allowed {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		var req map[string]any
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		if msg := check(req, cfg.MaxTextChars); msg != "" {
			cfg.Logger.Debug("Request rejected",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
				zap.String("reason", msg),
			)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": msg,
			})
		}

		return c.Next()
	}
}

func check(req map[string]any, maxTextChars int) string {
	text, ok := req["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return "text is required and must be a non-empty string"
	}
	if strings.ContainsRune(text, 0) {
		return "text must not contain NUL characters"
	}
	if maxTextChars > 0 && utf8.RuneCountInString(text) > maxTextChars {
		return "text exceeds maximum length"
	}

	for _, field := range []string{"language", "schema", "domain", "model", "model_first", "model_second", "model_referee"} {
		if v, present := req[field]; present && v != nil {
			if _, ok := v.(string); !ok {
				return field + " must be a string"
			}
		}
	}

	if v, present := req["temperature"]; present && v != nil {
		t, ok := v.(float64)
		if !ok || t < 0 || t > 2 {
			return "temperature must be a number between 0 and 2"
		}
	}

	if v, present := req["max_output_tokens"]; present && v != nil {
		n, ok := v.(float64)
		if !ok || n < 0 || n != float64(int64(n)) {
			return "max_output_tokens must be a non-negative integer"
		}
	}

	if v, present := req["examples"]; present && v != nil {
		if _, ok := v.([]any); !ok {
			return "examples must be an array"
		}
	}

	return ""
}
