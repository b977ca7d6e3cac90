package model

import "time"

// PrincipalKind distinguishes administrators (company owners) from
// workshop-scoped employees.
type PrincipalKind string

const (
    KindAdministrator PrincipalKind = "administrator"
    KindEmployee      PrincipalKind = "employee"
)

// Principal is the identity decoded from a verified access token.  The kind
// is resolved once, when the token is verified; CompanyID is only meaningful
// for administrators.
type Principal struct {
    UserID    uint64
    Kind      PrincipalKind
    CompanyID uint64
    IssuedAt  time.Time
    ExpiresAt time.Time
}

// NewPrincipal tags a principal from the nullable company claim.
func NewPrincipal(userID uint64, companyID *uint64) Principal {
    if companyID == nil {
        return Principal{UserID: userID, Kind: KindEmployee}
    }
    return Principal{UserID: userID, Kind: KindAdministrator, CompanyID: *companyID}
}

// Administrator returns the company id when the principal is an administrator.
func (p Principal) Administrator() (uint64, bool) {
    if p.Kind != KindAdministrator {
        return 0, false
    }
    return p.CompanyID, true
}

// IsEmployee reports whether the principal has no company of its own.
func (p Principal) IsEmployee() bool { return p.Kind == KindEmployee }
