package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/logging"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
)

// RequestRecorder ingests one application-family record per completed
// request. Instrumentation happens here, at the request boundary, instead of
// wrapping individual handlers; a slow request additionally produces a
// performance record.
func RequestRecorder(pipeline *logging.Pipeline, slowThresholdMS float64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" || strings.HasPrefix(c.Path(), "/uploads") {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		durationMS := float64(time.Since(start).Microseconds()) / 1000.0

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		level := logging.LevelInfo
		switch {
		case status >= 500:
			level = logging.LevelError
		case status >= 400:
			level = logging.LevelWarning
		}

		pipeline.Log(c.UserContext(), models.Record{
			Level:          level,
			Message:        "request completed",
			Layer:          "routing",
			ResponseStatus: status,
			RequestMethod:  c.Method(),
			RequestPath:    c.Path(),
			DurationMS:     &durationMS,
		}, models.FamilyApplication)

		if slowThresholdMS > 0 && durationMS > slowThresholdMS {
			pipeline.Performance(c.UserContext(), "http", c.Method()+" "+c.Route().Path,
				durationMS, slowThresholdMS, nil)
		}
		return err
	}
}
