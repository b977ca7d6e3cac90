package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/sgst/sgst-api/internal/middleware"
    "github.com/sgst/sgst-api/internal/service"
)

// CookieConfig controls the lifetime and Secure flag of the three cookies.
type CookieConfig struct {
    Secure      bool
    AccessTTL   time.Duration
    RefreshTTL  time.Duration
    WorkshopTTL time.Duration
}

func (cc CookieConfig) set(c echo.Context, name, value string, ttl time.Duration) {
    c.SetCookie(&http.Cookie{
        Name:     name,
        Value:    value,
        Path:     "/",
        MaxAge:   int(ttl / time.Second),
        Expires:  time.Now().Add(ttl),
        HttpOnly: true,
        Secure:   cc.Secure,
        SameSite: http.SameSiteLaxMode,
    })
}

func (cc CookieConfig) clear(c echo.Context, name string) {
    c.SetCookie(&http.Cookie{
        Name:     name,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        Expires:  time.Unix(0, 0),
        HttpOnly: true,
        Secure:   cc.Secure,
        SameSite: http.SameSiteLaxMode,
    })
}

func (cc CookieConfig) setSession(c echo.Context, pair service.TokenPair) {
    cc.set(c, middleware.AccessCookie, pair.AccessToken, cc.AccessTTL)
    cc.set(c, middleware.RefreshCookie, pair.RefreshToken, cc.RefreshTTL)
}

func (cc CookieConfig) setWorkshop(c echo.Context, workshopID uint64) {
    cc.set(c, middleware.WorkshopCookie, strconv.FormatUint(workshopID, 10), cc.WorkshopTTL)
}

func cookieValue(c echo.Context, name string) string {
    ck, err := c.Cookie(name)
    if err != nil {
        return ""
    }
    return ck.Value
}

// selectedWorkshop parses the workshop cookie; a missing or malformed value is nil.
func selectedWorkshop(c echo.Context) *uint64 {
    v := cookieValue(c, middleware.WorkshopCookie)
    if v == "" {
        return nil
    }
    id, err := strconv.ParseUint(v, 10, 64)
    if err != nil || id == 0 {
        return nil
    }
    return &id
}
