package middleware

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/gofiber/fiber/v3"
)

// ActivityWriter defines how activity records are persisted.
type ActivityWriter interface {
	WriteActivity(action, resource, resourceID, details, ip, userAgent string) error
}

// ActivityMiddleware logs every request for compliance purposes.
func ActivityMiddleware(writer ActivityWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Capture request data BEFORE handler execution (Fiber reuses context objects)
		method := c.Method()
		path := c.Path()
		ip := c.IP()
		userAgent := c.Get("User-Agent")

		// Execute the handler
		err := c.Next()

		// Build activity details with pre-captured values
		statusCode := c.Response().StatusCode()
		details := map[string]interface{}{
			"method":      method,
			"path":        path,
			"status":      statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		detailsJSON, _ := json.Marshal(details)

		// Write the activity log asynchronously; all values are captured, safe to use in goroutine
		go func() {
			if writeErr := writer.WriteActivity(
				domain.ActivityActionRequest,
				"api",
				path,
				string(detailsJSON),
				ip,
				userAgent,
			); writeErr != nil {
				slog.Error("failed to write activity log", "error", writeErr)
			}
		}()

		return err
	}
}
