package router

import (
    "context"
    "errors"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"

    "github.com/sgst/sgst-api/internal/handler"
    "github.com/sgst/sgst-api/internal/middleware"
    "github.com/sgst/sgst-api/internal/model"
)

type rejectAll struct{}

func (rejectAll) Verify(string) (model.Principal, error) { return model.Principal{}, errors.New("invalid") }

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("down") }

func newTestEcho() *echo.Echo {
    logger := slog.New(slog.NewTextHandler(io.Discard, nil))
    e := echo.New()
    RegisterRoutes(e, downDB{})
    RegisterAuth(e, handler.NewAuthHandler(nil, nil, nil, handler.CookieConfig{}, logger), rejectAll{}, AuthLimiters{})
    RegisterTenant(e, handler.NewTenantHandler(nil, handler.CookieConfig{}, logger), rejectAll{}, nil)
    return e
}

func TestRoutesRegistered(t *testing.T) {
    e := newTestEcho()
    got := map[string]bool{}
    for _, r := range e.Routes() {
        got[r.Method+" "+r.Path] = true
    }
    for _, want := range []string{
        "GET /healthz",
        "POST /v1/auth/register",
        "POST /v1/auth/login",
        "POST /v1/auth/refresh",
        "POST /v1/auth/logout",
        "POST /v1/auth/login/workshop",
        "POST /v1/auth/workshop",
        "GET /v1/auth/me",
        "GET /v1/auth/me/workshop",
        "POST /v1/companies",
        "GET /v1/workshops",
        "POST /v1/workshops",
        "GET /v1/subscriptions/verify",
        "GET /v1/subscriptions/licenses",
        "POST /v1/subscriptions",
    } {
        assert.True(t, got[want], want)
    }
}

func TestProtectedRoutesRequireSession(t *testing.T) {
    e := newTestEcho()
    for _, tc := range []struct{ method, path string }{
        {http.MethodGet, "/v1/auth/me"},
        {http.MethodPost, "/v1/auth/workshop"},
        {http.MethodPost, "/v1/companies"},
        {http.MethodPost, "/v1/workshops"},
        {http.MethodPost, "/v1/subscriptions"},
    } {
        req := httptest.NewRequest(tc.method, tc.path, nil)
        req.AddCookie(&http.Cookie{Name: middleware.AccessCookie, Value: "forged"})
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
    }
}

func TestHealthReportsDatabase(t *testing.T) {
    e := newTestEcho()
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
