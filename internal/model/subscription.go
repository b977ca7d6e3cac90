package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// License is an immutable catalog plan.  MaxWorkshops of 0 means unlimited.
type License struct {
    ID           uint64          `json:"id"`
    Name         string          `json:"name"`
    Description  *string         `json:"description,omitempty"`
    MonthlyPrice decimal.Decimal `json:"monthly_price"`
    AnnualPrice  decimal.Decimal `json:"annual_price"`
    MaxWorkshops int             `json:"max_workshops"`
    MaxUsers     int             `json:"max_users"`
}

// Unlimited reports whether the plan places no cap on workshops.
func (l License) Unlimited() bool { return l.MaxWorkshops <= 0 }

// Subscription is a company's purchase of a license.  At most one is active
// per company.  EndDate is informational; IsActive is authoritative.
type Subscription struct {
    ID        uint64     `json:"id"`
    CompanyID uint64     `json:"company_id"`
    LicenseID uint64     `json:"license_id"`
    StartDate time.Time  `json:"start_date"`
    EndDate   *time.Time `json:"end_date,omitempty"`
    IsActive  bool       `json:"is_active"`
}

// SubscriptionStatus answers whether a company currently holds an active plan.
type SubscriptionStatus struct {
    HasSubscription bool    `json:"has_subscription"`
    LicenseID       *uint64 `json:"license_id,omitempty"`
}
