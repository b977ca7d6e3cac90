package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireAdministrator rejects principals that do not own a company with
// 403.  It must run after AccessAuth.
func RequireAdministrator() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            p, ok := PrincipalFrom(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "error":   "invalid_session",
                    "message": "authentication required",
                })
            }
            if _, admin := p.Administrator(); !admin {
                return c.JSON(http.StatusForbidden, echo.Map{
                    "error":   "not_administrator",
                    "message": "only company administrators can perform this action",
                })
            }
            return next(c)
        }
    }
}
