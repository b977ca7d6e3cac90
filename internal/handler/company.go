package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/sgst/sgst-api/internal/middleware"
    "github.com/sgst/sgst-api/internal/service"
)

type companyReq struct {
    Name    string  `json:"name"`
    TaxID   *string `json:"tax_id"`
    Phone   *string `json:"phone"`
    Email   *string `json:"email"`
    Address *string `json:"address"`
}

// CreateCompany creates the caller's company and reissues the session
// cookies so the new access token carries the company.
func (h *TenantHandler) CreateCompany(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c)
    if !ok {
        return writeError(c, h.Logger, service.ErrInvalidSession)
    }
    var req companyReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    company, pair, err := h.Tenants.CreateCompany(ctx, p, service.CompanyInput{
        Name:    req.Name,
        TaxID:   req.TaxID,
        Phone:   req.Phone,
        Email:   req.Email,
        Address: req.Address,
    })
    if err != nil {
        return writeError(c, h.Logger, err)
    }
    h.Cookies.setSession(c, pair)
    return c.JSON(http.StatusCreated, company)
}
