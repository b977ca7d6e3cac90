// Package queue defines the domain events exchanged over the message broker,
// the RabbitMQ publisher used by the services and the audit consumer.
package queue

import (
    "time"

    "github.com/google/uuid"
)

// EventsQueue is the durable queue every domain event is published to.
const EventsQueue = "sgst.events"

// Event types.
const (
    UserRegistered      = "user.registered"
    UserLoggedIn        = "user.logged_in"
    SessionRevoked      = "session.revoked"
    CompanyCreated      = "company.created"
    WorkshopCreated     = "workshop.created"
    SubscriptionCreated = "subscription.created"
)

// Event is the envelope published for every domain event.  It carries
// identifiers only, never credentials, so consumers can log or audit it as
// is.
type Event struct {
    ID         string    `json:"id"`
    Type       string    `json:"type"`
    OccurredAt time.Time `json:"occurred_at"`
    UserID     uint64    `json:"user_id"`
    CompanyID  uint64    `json:"company_id,omitempty"`
    WorkshopID uint64    `json:"workshop_id,omitempty"`
    LicenseID  uint64    `json:"license_id,omitempty"`
}

// NewEvent stamps a new event with a random id and the current UTC time.
func NewEvent(typ string, userID uint64) Event {
    return Event{
        ID:         uuid.NewString(),
        Type:       typ,
        OccurredAt: time.Now().UTC(),
        UserID:     userID,
    }
}
