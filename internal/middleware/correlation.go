package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/correlation"
)

// Correlation opens a correlation context for each inbound request: it
// adopts an externally supplied X-Trace-ID (or generates one), derives the
// per-trace request id, echoes both on the response, and makes the context
// reachable through both fiber Locals and the request's context.Context so
// work scheduled from the handler inherits the labels.
//
// The trace's sequence counter is released when the request completes.
func Correlation(manager *correlation.Manager, baseLogger *zap.Logger) fiber.Handler {
	if baseLogger == nil {
		baseLogger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		rc := manager.Begin(c.Get(TraceIDHeader))
		rc.IPAddress = c.IP()
		rc.UserAgent = c.Get(fiber.HeaderUserAgent)
		rc.RequestPath = c.Path()
		rc.RequestMethod = c.Method()

		c.Set(TraceIDHeader, rc.TraceID)
		c.Set(RequestIDHeader, rc.RequestID)

		c.Locals(RequestContextKey, rc)
		c.SetUserContext(correlation.NewContext(c.UserContext(), rc))

		reqLogger := baseLogger.With(
			zap.String("trace_id", rc.TraceID),
			zap.String("request_id", rc.RequestID),
		)
		c.Locals(RequestLoggerKey, reqLogger)

		err := c.Next()
		manager.Release(rc.TraceID)
		return err
	}
}

// GetRequestContext returns the request's correlation context, or nil.
func GetRequestContext(c *fiber.Ctx) *correlation.RequestContext {
	if rc, ok := c.Locals(RequestContextKey).(*correlation.RequestContext); ok {
		return rc
	}
	return nil
}

// GetRequestLogger returns the trace-labelled logger for this request,
// falling back to a nop logger when the middleware did not run.
func GetRequestLogger(c *fiber.Ctx) *zap.Logger {
	if logger, ok := c.Locals(RequestLoggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}
