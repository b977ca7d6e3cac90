package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/sgst/sgst-api/internal/middleware"
    "github.com/sgst/sgst-api/internal/service"
)

type workshopReq struct {
    Name    string  `json:"name"`
    Phone   *string `json:"phone"`
    Email   *string `json:"email"`
    Address *string `json:"address"`
    TaxID   *string `json:"tax_id"`
}

// ListWorkshops returns the administrator's active workshops.
func (h *TenantHandler) ListWorkshops(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return writeError(c, h.Logger, service.ErrInvalidSession)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    list, err := h.Tenants.ListWorkshops(ctx, p)
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    return c.JSON(http.StatusOK, list)
}

// CreateWorkshop creates a workshop within the license quota.
func (h *TenantHandler) CreateWorkshop(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return writeError(c, h.Logger, service.ErrInvalidSession)
    }
    var req workshopReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    w, err := h.Tenants.CreateWorkshop(ctx, p, service.WorkshopInput{
        Name:    req.Name,
        Phone:   req.Phone,
        Email:   req.Email,
        Address: req.Address,
        TaxID:   req.TaxID,
    })
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    return c.JSON(http.StatusCreated, w)
}
