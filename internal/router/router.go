package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/sgst/sgst-api/internal/handler"
    "github.com/sgst/sgst-api/internal/middleware"
)

// AuthLimiters are the rate limiters placed in front of the credential
// endpoints.  A nil limiter is skipped.
type AuthLimiters struct {
    Login    echo.MiddlewareFunc
    Register echo.MiddlewareFunc
    Refresh  echo.MiddlewareFunc
}

func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
    out := make([]echo.MiddlewareFunc, 0, len(mws))
    for _, m := range mws {
        if m != nil {
            out = append(out, m)
        }
    }
    return out
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
    e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the session endpoints under /v1/auth.  Register,
// login and refresh are rate limited; logout accepts a missing or expired
// access token so a client can always clear its cookies.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, v middleware.TokenVerifier, limits AuthLimiters) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register, chain(limits.Register)...)
    g.POST("/login", a.Login, chain(limits.Login)...)
    g.POST("/refresh", a.Refresh, chain(limits.Refresh)...)
    g.POST("/logout", a.Logout, middleware.OptionalAccessAuth(v))
    g.POST("/login/workshop", a.LoginWorkshop)

    authed := g.Group("", middleware.AccessAuth(v))
    authed.POST("/workshop", a.SelectWorkshop, middleware.RequireAdministrator())
    authed.GET("/me", a.Me)
    authed.GET("/me/workshop", a.MeWorkshop)
}

// RegisterTenant registers company, workshop and subscription endpoints.
// licenseCache wraps the public license catalog.
func RegisterTenant(e *echo.Echo, t *handler.TenantHandler, v middleware.TokenVerifier, licenseCache echo.MiddlewareFunc) {
    e.GET("/v1/subscriptions/licenses", t.ListLicenses, chain(licenseCache)...)

    g := e.Group("/v1", middleware.AccessAuth(v))
    g.POST("/companies", t.CreateCompany)

    g.GET("/workshops", t.ListWorkshops, middleware.RequireAdministrator())
    g.POST("/workshops", t.CreateWorkshop, middleware.RequireAdministrator())

    g.GET("/subscriptions/verify", t.VerifySubscription)
    g.POST("/subscriptions", t.CreateSubscription, middleware.RequireAdministrator())
}
