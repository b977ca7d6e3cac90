package middleware

import (
    "log/slog"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
)

// RequestLogger assigns every request an X-Request-ID (keeping a client
// supplied one) and logs one line per request once it completes.  Bodies
// and cookies are never logged.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            rid := c.Request().Header.Get(echo.HeaderXRequestID)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, rid)

            err := next(c)
            if err != nil {
                // Let echo write the error response so the status is final.
                c.Error(err)
            }

            attrs := []any{
                "request_id", rid,
                "method", c.Request().Method,
                "route", c.Path(),
                "status", c.Response().Status,
                "latency_ms", time.Since(start).Milliseconds(),
                "ip", c.RealIP(),
            }
            if p, ok := PrincipalFrom(c); ok {
                attrs = append(attrs, "user_id", p.UserID)
            }
            switch {
            case c.Response().Status >= 500:
                logger.Error("request", append(attrs, "error", err)...)
            default:
                logger.Info("request", attrs...)
            }
            return nil
        }
    }
}
