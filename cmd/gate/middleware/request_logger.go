package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/liqk/gate/common/logger"
)

// LoggerKey is the context key the request-scoped logger is stored under
const LoggerKey ContextKey = "gate.logger"

// RequestLogger derives a per-request logger carrying the client address
// and the id assigned by the RequestID middleware, and stores it in the
// echo context. Handlers pick it up through GetLogger so every log line
// on a request path is correlatable.
func RequestLogger(base *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := base.WithClient(c.RealIP())
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				log = log.WithRequestID(id)
			}
			c.Set(string(LoggerKey), log)
			return next(c)
		}
	}
}

// GetLogger returns the request-scoped logger, or fallback when the
// middleware is not installed.
func GetLogger(c echo.Context, fallback *logger.Logger) *logger.Logger {
	if log, ok := c.Get(string(LoggerKey)).(*logger.Logger); ok {
		return log
	}
	return fallback
}
