package model

import "time"

// Role tags a user's membership in a workshop.
type Role string

const (
    RoleAdmin    Role = "ADMIN"
    RoleEmployee Role = "EMPLOYEE"
)

// Workshop is an operational unit owned by a company.  Names are unique per
// company among active workshops; workshops are soft-deactivated only.
type Workshop struct {
    ID        uint64    `json:"id"`
    CompanyID uint64    `json:"company_id"`
    Name      string    `json:"name"`
    Phone     *string   `json:"phone,omitempty"`
    Email     *string   `json:"email,omitempty"`
    Address   *string   `json:"address,omitempty"`
    TaxID     *string   `json:"tax_id,omitempty"`
    LogoPath  *string   `json:"logo_path,omitempty"`
    IsActive  bool      `json:"is_active"`
    CreatedAt time.Time `json:"created_at"`
}

// Membership links a user to a workshop under a role (`user_workshops`).
type Membership struct {
    UserID     uint64
    WorkshopID uint64
    Role       Role
    IsActive   bool
}

// MembershipContext is the workshop a principal acts on and the role it holds there.
type MembershipContext struct {
    WorkshopID uint64 `json:"workshop_id"`
    Role       Role   `json:"role"`
}
