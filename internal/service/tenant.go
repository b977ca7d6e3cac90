package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sgst/sgst-api/internal/model"
	"github.com/sgst/sgst-api/internal/queue"
	"github.com/sgst/sgst-api/internal/repository"
)

// subscriptionTerm is the length of a new subscription.
const subscriptionTerm = 365 * 24 * time.Hour

// TenantService resolves tenant context and guards tenant-scoped writes.
type TenantService struct {
	dir    TenantDirectory
	users  UserStore
	tokens *TokenService
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewTenantService(dir TenantDirectory, users UserStore, tokens *TokenService, events EventPublisher, logger *slog.Logger) *TenantService {
	return &TenantService{dir: dir, users: users, tokens: tokens, events: events, logger: logger, now: time.Now}
}

// WorkshopInput is the data of a new workshop.
type WorkshopInput struct {
	Name    string
	Phone   *string
	Email   *string
	Address *string
	TaxID   *string
}

// CompanyInput is the data of a new company.
type CompanyInput struct {
	Name    string
	TaxID   *string
	Phone   *string
	Email   *string
	Address *string
}

// ResolveCompanyForWorkshop returns the company owning an active workshop,
// or nil when there is no such workshop.
func (s *TenantService) ResolveCompanyForWorkshop(ctx context.Context, workshopID uint64) (*uint64, error) {
	id, err := s.dir.CompanyIDForWorkshop(ctx, workshopID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

// SelectWorkshop scopes an administrator to one of its company's workshops.
func (s *TenantService) SelectWorkshop(ctx context.Context, p model.Principal, workshopID uint64) (model.MembershipContext, error) {
	companyID, ok := p.Administrator()
	if !ok {
		return model.MembershipContext{}, ErrNotAdministrator
	}
	owner, err := s.ResolveCompanyForWorkshop(ctx, workshopID)
	if err != nil {
		return model.MembershipContext{}, err
	}
	if owner == nil {
		return model.MembershipContext{}, ErrWorkshopNotFound
	}
	if *owner != companyID {
		return model.MembershipContext{}, ErrWorkshopNotOwned
	}
	return model.MembershipContext{WorkshopID: workshopID, Role: model.RoleAdmin}, nil
}

// CurrentWorkshop validates a previously selected workshop against the
// principal.  An employee must hold an active membership in it; an
// administrator's company must own it.  Anything else yields nil.
func (s *TenantService) CurrentWorkshop(ctx context.Context, p model.Principal, workshopID *uint64) (*model.MembershipContext, error) {
	if workshopID == nil {
		return nil, nil
	}
	if companyID, ok := p.Administrator(); ok {
		owner, err := s.ResolveCompanyForWorkshop(ctx, *workshopID)
		if err != nil || owner == nil || *owner != companyID {
			return nil, err
		}
		return &model.MembershipContext{WorkshopID: *workshopID, Role: model.RoleAdmin}, nil
	}
	mc, err := s.dir.MembershipIn(ctx, p.UserID, *workshopID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mc, nil
}

// CreateWorkshop creates a workshop and the creator's ADMIN membership.
// Name uniqueness, the active subscription and the license quota are
// checked under the company lock, so concurrent calls cannot overshoot.
func (s *TenantService) CreateWorkshop(ctx context.Context, p model.Principal, in WorkshopInput) (model.Workshop, error) {
	companyID, ok := p.Administrator()
	if !ok {
		return model.Workshop{}, ErrNotAdministrator
	}
	w := model.Workshop{
		Name:    strings.TrimSpace(in.Name),
		Phone:   optional(in.Phone),
		Email:   optional(in.Email),
		Address: optional(in.Address),
		TaxID:   optional(in.TaxID),
	}
	if err := required("name", w.Name); err != nil {
		return model.Workshop{}, err
	}
	if w.Phone != nil {
		if err := ValidatePhone(*w.Phone); err != nil {
			return model.Workshop{}, err
		}
	}

	err := s.dir.WithCompanyLock(ctx, companyID, func(u repository.CompanyUnit) error {
		taken, err := u.WorkshopNameTaken(ctx, w.Name)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateWorkshopName
		}

		sub, err := u.ActiveSubscription(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoActiveSubscription
			}
			return err
		}
		limit, err := u.MaxWorkshops(ctx, sub.LicenseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoActiveSubscription
			}
			return err
		}
		if limit > 0 {
			n, err := u.CountActiveWorkshops(ctx)
			if err != nil {
				return err
			}
			if n >= limit {
				return ErrWorkshopQuotaExceeded
			}
		}

		if err := u.InsertWorkshop(ctx, &w); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDuplicateWorkshopName
			}
			return err
		}
		return u.InsertMembership(ctx, model.Membership{
			UserID:     p.UserID,
			WorkshopID: w.ID,
			Role:       model.RoleAdmin,
			IsActive:   true,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The administrator's company is gone or inactive.
			return model.Workshop{}, ErrNotAdministrator
		}
		return model.Workshop{}, err
	}

	s.logger.Info("workshop created", "company_id", companyID, "workshop_id", w.ID)
	ev := queue.NewEvent(queue.WorkshopCreated, p.UserID)
	ev.CompanyID, ev.WorkshopID = companyID, w.ID
	publish(ctx, s.events, s.logger, ev)
	return w, nil
}

// CreateSubscription subscribes a company to a license for one year.  A
// company holds at most one active subscription.
func (s *TenantService) CreateSubscription(ctx context.Context, companyID, licenseID uint64) (model.Subscription, error) {
	if _, err := s.dir.GetLicense(ctx, licenseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Subscription{}, ErrLicenseNotFound
		}
		return model.Subscription{}, err
	}

	start := s.now().UTC().Truncate(24 * time.Hour)
	end := start.Add(subscriptionTerm)
	sub := model.Subscription{LicenseID: licenseID, StartDate: start, EndDate: &end, IsActive: true}

	err := s.dir.WithCompanyLock(ctx, companyID, func(u repository.CompanyUnit) error {
		if _, err := u.ActiveSubscription(ctx); err == nil {
			return ErrCompanyAlreadySubscribed
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return u.InsertSubscription(ctx, &sub)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Subscription{}, ErrNotAdministrator
		}
		return model.Subscription{}, err
	}

	ev := queue.NewEvent(queue.SubscriptionCreated, 0)
	ev.CompanyID, ev.LicenseID = companyID, licenseID
	publish(ctx, s.events, s.logger, ev)
	return sub, nil
}

// CreateCompany creates the caller's company and returns a fresh token pair
// whose access token carries the new company id.
func (s *TenantService) CreateCompany(ctx context.Context, p model.Principal, in CompanyInput) (model.Company, TokenPair, error) {
	if _, ok := p.Administrator(); ok {
		return model.Company{}, TokenPair{}, ErrUserAlreadyHasCompany
	}
	c := model.Company{
		Name:    strings.TrimSpace(in.Name),
		TaxID:   optional(in.TaxID),
		Phone:   optional(in.Phone),
		Email:   optional(in.Email),
		Address: optional(in.Address),
	}
	if err := required("name", c.Name); err != nil {
		return model.Company{}, TokenPair{}, err
	}
	if c.Phone != nil {
		if err := ValidatePhone(*c.Phone); err != nil {
			return model.Company{}, TokenPair{}, err
		}
	}
	if c.Email != nil {
		if err := validateEmail(*c.Email); err != nil {
			return model.Company{}, TokenPair{}, err
		}
	}

	if err := s.dir.CreateCompany(ctx, p.UserID, &c); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserHasCompany):
			return model.Company{}, TokenPair{}, ErrUserAlreadyHasCompany
		case errors.Is(err, repository.ErrNotFound):
			return model.Company{}, TokenPair{}, ErrInvalidSession
		}
		return model.Company{}, TokenPair{}, err
	}

	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return model.Company{}, TokenPair{}, err
	}
	pair, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return model.Company{}, TokenPair{}, err
	}

	s.logger.Info("company created", "company_id", c.ID, "user_id", p.UserID)
	ev := queue.NewEvent(queue.CompanyCreated, p.UserID)
	ev.CompanyID = c.ID
	publish(ctx, s.events, s.logger, ev)
	return c, pair, nil
}

// ListWorkshops returns the administrator's active workshops by name.
func (s *TenantService) ListWorkshops(ctx context.Context, p model.Principal) ([]model.Workshop, error) {
	companyID, ok := p.Administrator()
	if !ok {
		return nil, ErrNotAdministrator
	}
	return s.dir.ListWorkshops(ctx, companyID)
}

// VerifySubscription reports whether the principal's company holds an
// active subscription.  Employees are resolved through the selected
// workshop, or their active membership when none is selected.
func (s *TenantService) VerifySubscription(ctx context.Context, p model.Principal, selected *uint64) (model.SubscriptionStatus, error) {
	companyID, ok := p.Administrator()
	if !ok {
		mc, err := s.CurrentWorkshop(ctx, p, selected)
		if err != nil {
			return model.SubscriptionStatus{}, err
		}
		if mc == nil {
			m, err := s.dir.ActiveMembership(ctx, p.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return model.SubscriptionStatus{}, nil
				}
				return model.SubscriptionStatus{}, err
			}
			mc = &m
		}
		owner, err := s.ResolveCompanyForWorkshop(ctx, mc.WorkshopID)
		if err != nil || owner == nil {
			return model.SubscriptionStatus{}, err
		}
		companyID = *owner
	}

	sub, err := s.dir.ActiveSubscription(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.SubscriptionStatus{}, nil
		}
		return model.SubscriptionStatus{}, err
	}
	licenseID := sub.LicenseID
	return model.SubscriptionStatus{HasSubscription: true, LicenseID: &licenseID}, nil
}

// ListLicenses returns the active license catalog.
func (s *TenantService) ListLicenses(ctx context.Context) ([]model.License, error) {
	return s.dir.ListLicenses(ctx)
}
