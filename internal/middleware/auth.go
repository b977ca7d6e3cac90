package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/sgst/sgst-api/internal/model"
)

// Cookie names carrying the session and the selected workshop.
const (
    AccessCookie   = "access_token"
    RefreshCookie  = "refresh_token"
    WorkshopCookie = "workshop_id"
)

// TokenVerifier decodes an access token into a principal.
type TokenVerifier interface {
    Verify(accessToken string) (model.Principal, error)
}

// AccessAuth returns an Echo middleware that requires a valid access token
// and stores the decoded principal in the request context.  The token is
// read from the access_token cookie, or from an "Authorization: Bearer"
// header for non-browser clients.
func AccessAuth(v TokenVerifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            p, err := v.Verify(accessToken(c))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "error":   "invalid_session",
                    "message": "authentication required",
                })
            }
            SetPrincipal(c, p)
            return next(c)
        }
    }
}

// OptionalAccessAuth stores the principal when a valid token is present and
// lets the request through either way.
func OptionalAccessAuth(v TokenVerifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if raw := accessToken(c); raw != "" {
                if p, err := v.Verify(raw); err == nil {
                    SetPrincipal(c, p)
                }
            }
            return next(c)
        }
    }
}

// accessToken returns the raw access token of the request, or "".
func accessToken(c echo.Context) string {
    if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
        return ck.Value
    }
    if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
        return strings.TrimPrefix(auth, "Bearer ")
    }
    return ""
}
