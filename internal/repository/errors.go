// Package repository defines the SQL stores used by the services and the
// sentinel errors they return.  Handlers never see these values directly;
// the service layer translates them into its own error taxonomy.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a looked-up row does not exist or is inactive.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting a user whose email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrSessionNotFound is returned when a refresh session row is missing,
// typically because it was already rotated or revoked.
var ErrSessionNotFound = errors.New("refresh session not found")

// ErrSessionExpired is returned when a refresh session exists but its TTL elapsed.
var ErrSessionExpired = errors.New("refresh session expired")

// ErrUserHasCompany is returned when a user that already owns a company
// attempts to create another one.
var ErrUserHasCompany = errors.New("user already has a company")

// ErrConflict is returned when a write violates a unique constraint other
// than the user email.
var ErrConflict = errors.New("conflict")

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
