// Package service holds the authentication, session and tenant
// authorization logic.  It depends on the store contracts declared here;
// the SQL implementations live in package repository.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sgst/sgst-api/internal/model"
	"github.com/sgst/sgst-api/internal/queue"
	"github.com/sgst/sgst-api/internal/repository"
)

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// SessionStore is the refresh-token store.
type SessionStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Rotate(ctx context.Context, tokenHash string, now time.Time, next func(userID uint64) (repository.NewSession, error)) error
	DeleteByHash(ctx context.Context, tokenHash string) error
}

// TenantDirectory resolves company, workshop, membership and subscription
// state.  Writes that must respect cross-row invariants go through
// WithCompanyLock.
type TenantDirectory interface {
	CompanyIDForWorkshop(ctx context.Context, workshopID uint64) (uint64, error)
	ActiveMembership(ctx context.Context, userID uint64) (model.MembershipContext, error)
	MembershipIn(ctx context.Context, userID, workshopID uint64) (model.MembershipContext, error)
	ListWorkshops(ctx context.Context, companyID uint64) ([]model.Workshop, error)
	ActiveSubscription(ctx context.Context, companyID uint64) (model.Subscription, error)
	GetLicense(ctx context.Context, id uint64) (model.License, error)
	ListLicenses(ctx context.Context) ([]model.License, error)
	CreateCompany(ctx context.Context, userID uint64, c *model.Company) error
	WithCompanyLock(ctx context.Context, companyID uint64, fn func(repository.CompanyUnit) error) error
}

// EventPublisher delivers domain events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

const publishTimeout = 2 * time.Second

// publish sends ev and only logs a failure; events never fail a request.
func publish(ctx context.Context, p EventPublisher, logger *slog.Logger, ev queue.Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("publish event failed", "type", ev.Type, "event_id", ev.ID, "error", err)
	}
}
