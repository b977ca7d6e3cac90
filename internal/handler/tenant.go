package handler

import (
    "context"
    "log/slog"

    "github.com/sgst/sgst-api/internal/model"
    "github.com/sgst/sgst-api/internal/service"
)

// TenantAPI is the slice of service.TenantService used by the company,
// workshop and subscription endpoints.
type TenantAPI interface {
    CreateCompany(ctx context.Context, p model.Principal, in service.CompanyInput) (model.Company, service.TokenPair, error)
    ListWorkshops(ctx context.Context, p model.Principal) ([]model.Workshop, error)
    CreateWorkshop(ctx context.Context, p model.Principal, in service.WorkshopInput) (model.Workshop, error)
    CreateSubscription(ctx context.Context, companyID, licenseID uint64) (model.Subscription, error)
    VerifySubscription(ctx context.Context, p model.Principal, selected *uint64) (model.SubscriptionStatus, error)
    ListLicenses(ctx context.Context) ([]model.License, error)
}

// TenantHandler serves companies, workshops and subscriptions.
type TenantHandler struct {
    Tenants TenantAPI
    Cookies CookieConfig
    Logger  *slog.Logger
}

func NewTenantHandler(tenants TenantAPI, cookies CookieConfig, logger *slog.Logger) *TenantHandler {
    return &TenantHandler{Tenants: tenants, Cookies: cookies, Logger: logger}
}
