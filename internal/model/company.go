package model

import "time"

// Company is the top-level tenant.  Each administrator creates at most one.
type Company struct {
    ID            uint64    `json:"id"`
    CreatorUserID uint64    `json:"creator_user_id"`
    Name          string    `json:"name"`
    TaxID         *string   `json:"tax_id,omitempty"`
    Phone         *string   `json:"phone,omitempty"`
    Email         *string   `json:"email,omitempty"`
    Address       *string   `json:"address,omitempty"`
    IsActive      bool      `json:"is_active"`
    CreatedAt     time.Time `json:"created_at"`
}
