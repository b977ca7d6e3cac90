package middleware

// identity.go holds the helpers that move the authenticated principal in and
// out of the Echo context.  Anonymous requests are identified as "anon".

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/sgst/sgst-api/internal/model"
)

const principalKey = "principal"

// SetPrincipal stores p as the authenticated principal of the request.
func SetPrincipal(c echo.Context, p model.Principal) { c.Set(principalKey, p) }

// PrincipalFrom returns the principal stored by AccessAuth or OptionalAccessAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
    p, ok := c.Get(principalKey).(model.Principal)
    return p, ok
}

// userID returns the authenticated user id as a string, or "anon".
func userID(c echo.Context) string {
    if p, ok := PrincipalFrom(c); ok && p.UserID != 0 {
        return strconv.FormatUint(p.UserID, 10)
    }
    return "anon"
}
