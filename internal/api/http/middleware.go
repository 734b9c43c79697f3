package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/observability"
	apperrors "github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

const (
	headerRequestID = "X-Request-ID"
	localRequestID  = "request_id"
)

// RegisterMiddlewares installs, outermost first: request id, access log, error
// envelope, per-request deadline. The access log wraps the error handler so it
// records the status the client actually received.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestIDMiddleware())
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorEnvelopeMiddleware(logger, metrics))
	if timeout > 0 {
		app.Use(deadlineMiddleware(timeout))
	}
}

// requestIDMiddleware echoes the caller's X-Request-ID or mints one.
func requestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(localRequestID, id)
		c.Set(headerRequestID, id)
		return c.Next()
	}
}

// deadlineMiddleware bounds the user context handed to services and repositories.
func deadlineMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorEnvelopeMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
					zap.Any(localRequestID, c.Locals(localRequestID)),
				)
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				writeError(c, logger, metrics, err)
				err = nil
			}
		}()
		return c.Next()
	}
}

// writeError renders err as {"error":{"code","message","details"}}.
func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(c.Path(), c.Method(), domainErr.Code)

	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.Any(localRequestID, c.Locals(localRequestID)),
			zap.Error(domainErr),
		)
	}
	if jsonErr := c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body}); jsonErr != nil {
		logger.Warn("write error response", zap.Error(jsonErr))
	}
}
