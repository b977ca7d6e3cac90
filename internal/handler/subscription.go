package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/sgst/sgst-api/internal/middleware"
    "github.com/sgst/sgst-api/internal/service"
)

type subscriptionReq struct {
    LicenseID uint64 `json:"license_id"`
}

// VerifySubscription reports whether the caller's company is subscribed.
func (h *TenantHandler) VerifySubscription(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return writeError(c, h.Logger, service.ErrInvalidSession)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    st, err := h.Tenants.VerifySubscription(ctx, p, selectedWorkshop(c))
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, st)
}

// ListLicenses returns the license catalog.
func (h *TenantHandler) ListLicenses(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    list, err := h.Tenants.ListLicenses(ctx)
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, list)
}

// CreateSubscription subscribes the administrator's company to a license.
func (h *TenantHandler) CreateSubscription(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return writeError(c, h.Logger, service.ErrInvalidSession)
    }
    companyID, admin := p.Administrator()
    if !admin {
        return writeError(c, h.Logger, service.ErrNotAdministrator)
    }
    var req subscriptionReq
    if err := c.Bind(&req); err != nil || req.LicenseID == 0 {
        return badRequest(c, "license_id is required")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    sub, err := h.Tenants.CreateSubscription(ctx, companyID, req.LicenseID)
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    return c.JSON(http.StatusCreated, sub)
}
