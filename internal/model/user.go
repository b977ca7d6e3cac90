package model

import "time"

// User represents an account as stored in the `users` table.  CompanyID is
// nil until the user creates a company; its presence is what makes the user
// an administrator rather than a workshop-scoped employee.
//
// Fields:
//  ID           – primary key identifier of the user.
//  CompanyID    – owning company (nullable).
//  Name         – given name.
//  Surname      – family names.
//  Email        – unique email address (stored lower-cased).
//  Phone        – contact phone, validated on registration.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account may log in.
type User struct {
    ID           uint64    // users.id
    CompanyID    *uint64   // users.company_id (nullable)
    Name         string    // users.name
    Surname      string    // users.surname
    Email        string    // users.email
    Phone        string    // users.phone
    PasswordHash string    // users.password_hash
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// RefreshSession models an entry in the `refresh_sessions` table.  The raw
// refresh token is never stored, only its SHA‑256 hash.  A row is deleted
// when it is rotated or revoked.
type RefreshSession struct {
    ID        uint64    // refresh_sessions.id
    UserID    uint64    // refresh_sessions.user_id
    TokenHash string    // refresh_sessions.token_hash
    ExpiresAt time.Time // refresh_sessions.expires_at
    CreatedAt time.Time // refresh_sessions.created_at
}
